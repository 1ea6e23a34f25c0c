package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSeededTodos() *TodoService {
	s := NewTodoService(fixedClock(testStart), zap.NewNop())
	s.Seed()
	return s
}

func TestTodoService_SeedAndFilter(t *testing.T) {
	ctx := context.Background()
	s := newSeededTodos()

	assert.Len(t, s.List(ctx, TodoFilter{}), 3)

	completed := true
	done := s.List(ctx, TodoFilter{Completed: &completed})
	require.Len(t, done, 1)
	assert.Equal(t, "Revisar documentación de Zod", done[0].Title)

	work := s.List(ctx, TodoFilter{Tag: "trabajo"})
	assert.Len(t, work, 2)

	found := s.List(ctx, TodoFilter{Search: "ZOD"})
	require.Len(t, found, 2)
}

func TestTodoService_SortByPriorityAndDueDate(t *testing.T) {
	ctx := context.Background()
	s := newSeededTodos()

	byPriority := s.List(ctx, TodoFilter{SortBy: "priority"})
	require.Len(t, byPriority, 3)
	assert.Equal(t, []string{"high", "medium", "low"},
		[]string{byPriority[0].Priority, byPriority[1].Priority, byPriority[2].Priority})

	byDue := s.List(ctx, TodoFilter{SortBy: "dueDate"})
	require.Len(t, byDue, 3)
	assert.Equal(t, "Completar ejercicio T4", byDue[0].Title)
	assert.Nil(t, byDue[2].DueDate, "todos without due date go last")
}

func TestTodoService_Stats(t *testing.T) {
	ctx := context.Background()
	s := newSeededTodos()

	past := testStart.Add(-time.Hour)
	_, err := s.Create(ctx, TodoInput{
		Title:    Some("Vencida"),
		Priority: Some("high"),
		DueDate:  Some(past),
		Tags:     Some([]string{"trabajo"}),
	})
	require.NoError(t, err)

	st := s.Stats(ctx)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 3, st.Pending)
	assert.Equal(t, 25, st.CompletionRate)
	assert.Equal(t, 1, st.Overdue)
	assert.Equal(t, 2, st.ByPriority["high"])
	require.NotEmpty(t, st.TopTags)
	assert.Equal(t, "trabajo", st.TopTags[0].Tag)
	assert.Equal(t, 3, st.TopTags[0].Count)
}

func TestTodoService_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	s := NewTodoService(fixedClock(testStart), zap.NewNop())

	todo, err := s.Create(ctx, TodoInput{Title: Some("Nueva"), Priority: Some("low")})
	require.NoError(t, err)
	assert.False(t, todo.Completed)
	assert.Equal(t, []string{}, todo.Tags)
	assert.Nil(t, todo.Description)
	assert.Equal(t, testStart, todo.CreatedAt)
}

func TestTodoService_ReplaceClearsOptionalFields(t *testing.T) {
	ctx := context.Background()
	s := NewTodoService(fixedClock(testStart), zap.NewNop())

	created, err := s.Create(ctx, TodoInput{
		Title:       Some("Original"),
		Description: Some("detalle"),
		Priority:    Some("medium"),
		Tags:        Some([]string{"a"}),
	})
	require.NoError(t, err)

	replaced, err := s.Replace(ctx, created.ID, TodoInput{
		Title:     Some("Reemplazada"),
		Priority:  Some("high"),
		Completed: Some(true),
		Tags:      Some([]string{}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Reemplazada", replaced.Title)
	assert.Nil(t, replaced.Description)
	assert.True(t, replaced.Completed)
	assert.Equal(t, created.CreatedAt, replaced.CreatedAt)
}

func TestTodoService_PatchToggleDelete(t *testing.T) {
	ctx := context.Background()
	s := NewTodoService(fixedClock(testStart), zap.NewNop())

	created, err := s.Create(ctx, TodoInput{Title: Some("Tarea"), Priority: Some("low"), Description: Some("x")})
	require.NoError(t, err)

	patched, err := s.Patch(ctx, created.ID, TodoInput{Description: Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, patched.Description)
	assert.Equal(t, "Tarea", patched.Title)

	toggled, msg, err := s.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.Equal(t, "Tarea marcada como completada", msg)

	_, msg, err = s.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tarea marcada como pendiente", msg)

	deleted, err := s.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = s.Get(ctx, created.ID)
	requireAppError(t, err, http.StatusNotFound, "Tarea con ID "+created.ID+" no encontrada")
}

func TestTodoService_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newSeededTodos()

	list := s.List(ctx, TodoFilter{})
	list[0].Tags[0] = "mutated"

	again := s.List(ctx, TodoFilter{})
	assert.NotEqual(t, "mutated", again[0].Tags[0])
}
