package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

type CursoFilter struct {
	Nivel  string
	Orden  string
	Limit  int
	Offset int
}

type CursoInput struct {
	Titulo      Field[string]
	Lenguaje    Field[string]
	Tema        Field[string]
	Nivel       Field[string]
	Descripcion Field[string]
}

// CursoService keeps courses per category in process memory.
type CursoService struct {
	mu         sync.RWMutex
	categories map[string][]*models.Curso
	logger     *zap.Logger
}

func NewCursoService(categories []string, logger *zap.Logger) *CursoService {
	s := &CursoService{categories: make(map[string][]*models.Curso, len(categories)), logger: logger}
	for _, c := range categories {
		s.categories[c] = nil
	}
	return s
}

// Seed loads the sample courses of both categories.
func (s *CursoService) Seed() {
	calculo, algebra := "calculo", "algebra"

	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories["programacion"] = append(s.categories["programacion"],
		&models.Curso{ID: 1, Titulo: "JavaScript Moderno", Nivel: "basico", Vistas: 15000},
		&models.Curso{ID: 2, Titulo: "Node.js Avanzado", Nivel: "avanzado", Vistas: 8500},
		&models.Curso{ID: 3, Titulo: "Python para Data Science", Nivel: "intermedio", Vistas: 12000},
	)
	s.categories["matematicas"] = append(s.categories["matematicas"],
		&models.Curso{ID: 1, Titulo: "Cálculo Diferencial", Tema: &calculo, Nivel: "basico", Vistas: 7500},
		&models.Curso{ID: 2, Titulo: "Álgebra Lineal", Tema: &algebra, Nivel: "intermedio", Vistas: 6200},
	)
}

func (s *CursoService) List(_ context.Context, categoria string, f CursoFilter) ([]models.Curso, error) {
	s.mu.RLock()
	cursos, ok := s.categories[categoria]
	if !ok {
		s.mu.RUnlock()
		return nil, categoryNotFound(categoria)
	}
	out := make([]models.Curso, 0, len(cursos))
	for _, c := range cursos {
		if f.Nivel != "" && c.Nivel != f.Nivel {
			continue
		}
		out = append(out, cloneCurso(c))
	}
	s.mu.RUnlock()

	switch f.Orden {
	case "vistas":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Vistas > out[j].Vistas })
	case "titulo":
		sort.SliceStable(out, func(i, j int) bool { return util.CompareText(out[i].Titulo, out[j].Titulo) < 0 })
	}

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.Curso{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *CursoService) Get(_ context.Context, categoria string, id int) (*models.Curso, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cursos, i, err := s.locate(categoria, id)
	if err != nil {
		return nil, err
	}
	c := cloneCurso(cursos[i])
	return &c, nil
}

// Create appends a course with the next id of its category.
func (s *CursoService) Create(_ context.Context, categoria string, in CursoInput) (*models.Curso, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursos, ok := s.categories[categoria]
	if !ok {
		return nil, categoryNotFound(categoria)
	}

	next := 1
	for _, c := range cursos {
		next = max(next, c.ID+1)
	}
	c := &models.Curso{
		ID:          next,
		Titulo:      in.Titulo.Value,
		Lenguaje:    in.Lenguaje.Ptr(),
		Tema:        in.Tema.Ptr(),
		Nivel:       in.Nivel.Value,
		Descripcion: in.Descripcion.Ptr(),
	}
	s.categories[categoria] = append(cursos, c)

	s.logger.Debug("Curso created", zap.String("categoria", categoria), zap.Int("curso_id", c.ID))
	out := cloneCurso(c)
	return &out, nil
}

// Replace rewrites the course. Titulo and nivel keep their value when
// absent, the optional fields are cleared and vistas is preserved.
func (s *CursoService) Replace(_ context.Context, categoria string, id int, in CursoInput) (*models.Curso, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursos, i, err := s.locate(categoria, id)
	if err != nil {
		return nil, err
	}
	prev := cursos[i]
	cursos[i] = &models.Curso{
		ID:          id,
		Titulo:      in.Titulo.Or(prev.Titulo),
		Lenguaje:    in.Lenguaje.Ptr(),
		Tema:        in.Tema.Ptr(),
		Nivel:       in.Nivel.Or(prev.Nivel),
		Descripcion: in.Descripcion.Ptr(),
		Vistas:      prev.Vistas,
	}
	out := cloneCurso(cursos[i])
	return &out, nil
}

func (s *CursoService) Patch(_ context.Context, categoria string, id int, in CursoInput) (*models.Curso, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursos, i, err := s.locate(categoria, id)
	if err != nil {
		return nil, err
	}
	c := cloneCurso(cursos[i])
	if in.Titulo.Set {
		c.Titulo = in.Titulo.Value
	}
	if in.Lenguaje.Set {
		c.Lenguaje = in.Lenguaje.Ptr()
	}
	if in.Tema.Set {
		c.Tema = in.Tema.Ptr()
	}
	if in.Nivel.Set {
		c.Nivel = in.Nivel.Value
	}
	if in.Descripcion.Set {
		c.Descripcion = in.Descripcion.Ptr()
	}
	cursos[i] = &c
	out := cloneCurso(&c)
	return &out, nil
}

func (s *CursoService) Delete(_ context.Context, categoria string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursos, i, err := s.locate(categoria, id)
	if err != nil {
		return err
	}
	s.categories[categoria] = append(cursos[:i], cursos[i+1:]...)
	return nil
}

// locate must be called with the lock held.
func (s *CursoService) locate(categoria string, id int) ([]*models.Curso, int, error) {
	cursos, ok := s.categories[categoria]
	if !ok {
		return nil, -1, categoryNotFound(categoria)
	}
	for i, c := range cursos {
		if c.ID == id {
			return cursos, i, nil
		}
	}
	return nil, -1, apperror.NotFound(fmt.Sprintf("Curso con ID %d no encontrado", id))
}

func categoryNotFound(categoria string) error {
	return apperror.NotFound(fmt.Sprintf("Categoría %s no encontrada", categoria))
}

func cloneCurso(c *models.Curso) models.Curso {
	out := *c
	out.Lenguaje = clonePtr(c.Lenguaje)
	out.Tema = clonePtr(c.Tema)
	out.Descripcion = clonePtr(c.Descripcion)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
