package service

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

// UsuarioFilter selects and orders usuarios.
type UsuarioFilter struct {
	Nivel string
	Orden string
}

type UsuarioInput struct {
	Name  Field[string]
	Nivel Field[string]
}

// UsuarioService keeps the usuarios list in process memory.
type UsuarioService struct {
	mu       sync.RWMutex
	usuarios []*models.Usuario
	logger   *zap.Logger
}

func NewUsuarioService(logger *zap.Logger) *UsuarioService {
	return &UsuarioService{logger: logger}
}

func (s *UsuarioService) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usuarios = append(s.usuarios,
		&models.Usuario{ID: 1, Name: "Ana García", Nivel: "senior"},
		&models.Usuario{ID: 2, Name: "Luis Pérez", Nivel: "junior"},
		&models.Usuario{ID: 3, Name: "Marta Ruiz", Nivel: "mid-senior"},
	)
}

func (s *UsuarioService) List(_ context.Context, f UsuarioFilter) []models.Usuario {
	s.mu.RLock()
	out := make([]models.Usuario, 0, len(s.usuarios))
	for _, u := range s.usuarios {
		if f.Nivel != "" && u.Nivel != f.Nivel {
			continue
		}
		out = append(out, *u)
	}
	s.mu.RUnlock()

	switch f.Orden {
	case "name":
		sort.SliceStable(out, func(i, j int) bool { return util.CompareText(out[i].Name, out[j].Name) < 0 })
	case "nivel":
		sort.SliceStable(out, func(i, j int) bool {
			return cmp.Less(models.UsuarioLevelRank[out[i].Nivel], models.UsuarioLevelRank[out[j].Nivel])
		})
	}
	return out
}

func (s *UsuarioService) Get(_ context.Context, id int) (*models.Usuario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, usuarioNotFound(id)
	}
	u := *s.usuarios[i]
	return &u, nil
}

func (s *UsuarioService) Create(_ context.Context, in UsuarioInput) (*models.Usuario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 1
	for _, u := range s.usuarios {
		next = max(next, u.ID+1)
	}
	u := &models.Usuario{ID: next, Name: in.Name.Value, Nivel: in.Nivel.Value}
	s.usuarios = append(s.usuarios, u)

	s.logger.Debug("Usuario created", zap.Int("usuario_id", u.ID))
	out := *u
	return &out, nil
}

// Replace rewrites name and nivel, keeping the current value of a field
// that was not sent.
func (s *UsuarioService) Replace(_ context.Context, id int, in UsuarioInput) (*models.Usuario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, usuarioNotFound(id)
	}
	prev := s.usuarios[i]
	u := &models.Usuario{ID: id, Name: in.Name.Or(prev.Name), Nivel: in.Nivel.Or(prev.Nivel)}
	s.usuarios[i] = u
	out := *u
	return &out, nil
}

func (s *UsuarioService) Patch(_ context.Context, id int, in UsuarioInput) (*models.Usuario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, usuarioNotFound(id)
	}
	u := *s.usuarios[i]
	if in.Name.Set {
		u.Name = in.Name.Value
	}
	if in.Nivel.Set {
		u.Nivel = in.Nivel.Value
	}
	s.usuarios[i] = &u
	out := u
	return &out, nil
}

func (s *UsuarioService) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return usuarioNotFound(id)
	}
	s.usuarios = append(s.usuarios[:i], s.usuarios[i+1:]...)
	return nil
}

func (s *UsuarioService) indexOf(id int) int {
	for i, u := range s.usuarios {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func usuarioNotFound(id int) error {
	return apperror.NotFound(fmt.Sprintf("Usuario con ID %d no encontrado", id))
}
