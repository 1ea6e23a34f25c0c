package service

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

type TodoFilter struct {
	Completed *bool
	Priority  string
	Tag       string
	Search    string
	SortBy    string
	Order     string
}

type TodoInput struct {
	Title       Field[string]
	Description Field[string]
	Priority    Field[string]
	Completed   Field[bool]
	DueDate     Field[time.Time]
	Tags        Field[[]string]
}

// TodoService keeps todos in process memory in insertion order.
type TodoService struct {
	mu     sync.RWMutex
	todos  []*models.Todo
	clock  Clock
	logger *zap.Logger
}

func NewTodoService(clock Clock, logger *zap.Logger) *TodoService {
	return &TodoService{clock: clock, logger: logger}
}

// Seed loads the three sample todos.
func (s *TodoService) Seed() {
	now := s.clock.now()
	in7 := now.Add(7 * 24 * time.Hour)
	in14 := now.Add(14 * 24 * time.Hour)
	desc1 := "Crear API de tareas con Express y Zod"
	desc2 := "Estudiar validación avanzada"

	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = append(s.todos,
		&models.Todo{
			ID: uuid.NewString(), Title: "Completar ejercicio T4", Description: &desc1,
			Priority: "high", DueDate: &in7, Tags: []string{"trabajo", "programacion"},
			CreatedAt: now, UpdatedAt: now,
		},
		&models.Todo{
			ID: uuid.NewString(), Title: "Revisar documentación de Zod", Description: &desc2,
			Priority: "medium", Completed: true, Tags: []string{"estudio"},
			CreatedAt: now, UpdatedAt: now,
		},
		&models.Todo{
			ID: uuid.NewString(), Title: "Hacer deploy del proyecto",
			Priority: "low", DueDate: &in14, Tags: []string{"trabajo", "devops", "urgente"},
			CreatedAt: now, UpdatedAt: now,
		},
	)
}

func (s *TodoService) List(_ context.Context, f TodoFilter) []models.Todo {
	s.mu.RLock()
	out := make([]models.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if matchesTodo(t, f) {
			out = append(out, cloneTodo(t))
		}
	}
	s.mu.RUnlock()

	if f.SortBy != "" {
		desc := f.Order == "desc"
		sort.SliceStable(out, func(i, j int) bool {
			return ordered(compareTodos(&out[i], &out[j], f.SortBy), desc)
		})
	}
	return out
}

func matchesTodo(t *models.Todo, f TodoFilter) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		inTitle := strings.Contains(strings.ToLower(t.Title), needle)
		inDesc := t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle)
		if !inTitle && !inDesc {
			return false
		}
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, tag := range t.Tags {
			if tag == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func compareTodos(a, b *models.Todo, sortBy string) int {
	switch sortBy {
	case "dueDate":
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "priority":
		return cmp.Compare(models.PriorityRank[b.Priority], models.PriorityRank[a.Priority])
	case "title":
		return util.CompareText(a.Title, b.Title)
	}
	return 0
}

func (s *TodoService) Stats(_ context.Context) models.TodoStats {
	now := s.clock.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.TodoStats{
		Total:      len(s.todos),
		ByPriority: map[string]int{"high": 0, "medium": 0, "low": 0},
		TopTags:    []models.TagCount{},
	}
	counts := map[string]int{}
	var tagOrder []string
	for _, t := range s.todos {
		if t.Completed {
			st.Completed++
		} else if t.DueDate != nil && t.DueDate.Before(now) {
			st.Overdue++
		}
		st.ByPriority[t.Priority]++
		for _, tag := range t.Tags {
			if counts[tag] == 0 {
				tagOrder = append(tagOrder, tag)
			}
			counts[tag]++
		}
	}
	st.Pending = st.Total - st.Completed
	if st.Total > 0 {
		st.CompletionRate = int(math.Round(float64(st.Completed) / float64(st.Total) * 100))
	}

	sort.SliceStable(tagOrder, func(i, j int) bool { return counts[tagOrder[i]] > counts[tagOrder[j]] })
	if len(tagOrder) > 5 {
		tagOrder = tagOrder[:5]
	}
	for _, tag := range tagOrder {
		st.TopTags = append(st.TopTags, models.TagCount{Tag: tag, Count: counts[tag]})
	}
	return st
}

func (s *TodoService) Get(_ context.Context, id string) (*models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, todoNotFound(id)
	}
	t := cloneTodo(s.todos[i])
	return &t, nil
}

func (s *TodoService) Create(_ context.Context, in TodoInput) (*models.Todo, error) {
	now := s.clock.now()
	t := &models.Todo{
		ID:          uuid.NewString(),
		Title:       in.Title.Value,
		Description: in.Description.Ptr(),
		Priority:    in.Priority.Value,
		Completed:   in.Completed.Or(false),
		DueDate:     in.DueDate.Ptr(),
		Tags:        in.Tags.Or([]string{}),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.todos = append(s.todos, t)
	s.mu.Unlock()

	s.logger.Debug("Todo created", zap.String("todo_id", t.ID))
	out := cloneTodo(t)
	return &out, nil
}

// Replace overwrites every field. Optional fields left out are cleared.
func (s *TodoService) Replace(_ context.Context, id string, in TodoInput) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, todoNotFound(id)
	}
	prev := s.todos[i]
	t := &models.Todo{
		ID:          id,
		Title:       in.Title.Value,
		Description: in.Description.Ptr(),
		Priority:    in.Priority.Value,
		Completed:   in.Completed.Or(prev.Completed),
		DueDate:     in.DueDate.Ptr(),
		Tags:        in.Tags.Or([]string{}),
		CreatedAt:   prev.CreatedAt,
		UpdatedAt:   s.clock.now(),
	}
	s.todos[i] = t
	out := cloneTodo(t)
	return &out, nil
}

// Patch applies only the fields that were sent.
func (s *TodoService) Patch(_ context.Context, id string, in TodoInput) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, todoNotFound(id)
	}
	t := cloneTodo(s.todos[i])
	if in.Title.Set {
		t.Title = in.Title.Value
	}
	if in.Description.Set {
		t.Description = in.Description.Ptr()
	}
	if in.Priority.Set {
		t.Priority = in.Priority.Value
	}
	if in.Completed.Set {
		t.Completed = in.Completed.Value
	}
	if in.DueDate.Set {
		t.DueDate = in.DueDate.Ptr()
	}
	if in.Tags.Set {
		t.Tags = in.Tags.Or([]string{})
	}
	t.UpdatedAt = s.clock.now()
	s.todos[i] = &t
	out := cloneTodo(&t)
	return &out, nil
}

// Toggle flips completed and returns the todo plus the confirmation text.
func (s *TodoService) Toggle(_ context.Context, id string) (*models.Todo, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, "", todoNotFound(id)
	}
	t := cloneTodo(s.todos[i])
	t.Completed = !t.Completed
	t.UpdatedAt = s.clock.now()
	s.todos[i] = &t

	state := "pendiente"
	if t.Completed {
		state = "completada"
	}
	out := cloneTodo(&t)
	return &out, "Tarea marcada como " + state, nil
}

func (s *TodoService) Delete(_ context.Context, id string) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, todoNotFound(id)
	}
	t := s.todos[i]
	s.todos = append(s.todos[:i], s.todos[i+1:]...)
	return t, nil
}

func (s *TodoService) indexOf(id string) int {
	for i, t := range s.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func todoNotFound(id string) error {
	return apperror.NotFound(fmt.Sprintf("Tarea con ID %s no encontrada", id))
}

func cloneTodo(t *models.Todo) models.Todo {
	c := *t
	c.Tags = append([]string{}, t.Tags...)
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return c
}
