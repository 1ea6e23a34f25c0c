package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/schemas"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

const msgTodoDeleted = "Tarea eliminada correctamente"

// TodoHandler handles HTTP requests for todo operations
type TodoHandler struct {
	*api
	todos *service.TodoService
}

func NewTodoHandler(todos *service.TodoService, opts APIOptions) *TodoHandler {
	return &TodoHandler{api: newAPI(opts), todos: todos}
}

// RegisterRoutes registers all todo routes
func (h *TodoHandler) RegisterRoutes(router chi.Router) {
	router.Route("/todos", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/stats", h.Stats)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Replace)
		r.Patch("/{id}", h.Patch)
		r.Patch("/{id}/toggle", h.Toggle)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /todos
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TodosList)
	if !ok {
		return
	}
	todos := h.todos.List(r.Context(), service.TodoFilter{
		Completed: optionalBool(in.Query, "completed"),
		Priority:  in.Query.StringOr("priority", ""),
		Tag:       in.Query.StringOr("tag", ""),
		Search:    in.Query.StringOr("search", ""),
		SortBy:    in.Query.StringOr("sortBy", ""),
		Order:     in.Query.StringOr("order", ""),
	})
	total := len(todos)
	h.respondWithJSON(w, http.StatusOK, Response{Success: true, Data: todos, Total: &total})
}

// Stats handles GET /todos/stats
func (h *TodoHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, successResponse(h.todos.Stats(r.Context()), ""))
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TodosGet)
	if !ok {
		return
	}
	todo, err := h.todos.Get(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(todo, ""))
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TodosCreate)
	if !ok {
		return
	}
	todo, err := h.todos.Create(r.Context(), todoInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(todo, "Tarea creada correctamente"))
}

// Replace handles PUT /todos/{id}, a full replacement.
func (h *TodoHandler) Replace(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TodosUpdate)
	if !ok {
		return
	}
	todo, err := h.todos.Replace(r.Context(), in.Params.StringOr("id", ""), todoInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(todo, "Tarea actualizada correctamente"))
}

func (h *TodoHandler) Patch(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TodosPatch)
	if !ok {
		return
	}
	todo, err := h.todos.Patch(r.Context(), in.Params.StringOr("id", ""), todoInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(todo, "Tarea actualizada correctamente"))
}

func (h *TodoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TodosGet)
	if !ok {
		return
	}
	todo, msg, err := h.todos.Toggle(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(todo, msg))
}

// Delete handles DELETE /todos/{id}. It answers 200 with the removed todo.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TodosGet)
	if !ok {
		return
	}
	todo, err := h.todos.Delete(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(todo, msgTodoDeleted))
}

func todoInput(body validation.Values) service.TodoInput {
	return service.TodoInput{
		Title:       stringField(body, "title"),
		Description: stringField(body, "description"),
		Priority:    stringField(body, "priority"),
		Completed:   boolField(body, "completed"),
		DueDate:     timeField(body, "dueDate"),
		Tags:        stringsField(body, "tags"),
	}
}
