package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/schemas"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

// CursoHandler serves courses grouped by category.
type CursoHandler struct {
	*api
	cursos *service.CursoService
}

func NewCursoHandler(cursos *service.CursoService, opts APIOptions) *CursoHandler {
	return &CursoHandler{api: newAPI(opts), cursos: cursos}
}

func (h *CursoHandler) RegisterRoutes(router chi.Router) {
	router.Route("/cursos/{categoria}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Replace)
		r.Patch("/{id}", h.Patch)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *CursoHandler) List(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.CursosList)
	if !ok {
		return
	}
	cursos, err := h.cursos.List(r.Context(), in.Params.StringOr("categoria", ""), service.CursoFilter{
		Nivel:  in.Query.StringOr("nivel", ""),
		Orden:  in.Query.StringOr("orden", ""),
		Limit:  in.Query.IntOr("limit", 0),
		Offset: in.Query.IntOr("offset", 0),
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	total := len(cursos)
	h.respondWithJSON(w, http.StatusOK, Response{Success: true, Data: cursos, Total: &total})
}

func (h *CursoHandler) Get(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.CursosGet)
	if !ok {
		return
	}
	id, err := cursoID(in.Params)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	curso, err := h.cursos.Get(r.Context(), in.Params.StringOr("categoria", ""), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(curso, ""))
}

func (h *CursoHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.CursoCreateRoute(chi.URLParam(r, "categoria")))
	if !ok {
		return
	}
	curso, err := h.cursos.Create(r.Context(), in.Params.StringOr("categoria", ""), cursoInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(curso, ""))
}

func (h *CursoHandler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.cursos.Replace)
}

func (h *CursoHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.cursos.Patch)
}

type cursoUpdate func(ctx context.Context, categoria string, id int, in service.CursoInput) (*models.Curso, error)

func (h *CursoHandler) update(w http.ResponseWriter, r *http.Request, apply cursoUpdate) {
	in, ok := h.bind(w, r, schemas.CursosUpdate)
	if !ok {
		return
	}
	id, err := cursoID(in.Params)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	curso, err := apply(r.Context(), in.Params.StringOr("categoria", ""), id, cursoInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(curso, ""))
}

func (h *CursoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.CursosGet)
	if !ok {
		return
	}
	id, err := cursoID(in.Params)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	if err := h.cursos.Delete(r.Context(), in.Params.StringOr("categoria", ""), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func cursoInput(body validation.Values) service.CursoInput {
	return service.CursoInput{
		Titulo:      stringField(body, "titulo"),
		Lenguaje:    stringField(body, "lenguaje"),
		Tema:        stringField(body, "tema"),
		Nivel:       stringField(body, "nivel"),
		Descripcion: stringField(body, "descripcion"),
	}
}

// cursoID parses the digit id. Ids too large for an int cannot exist.
func cursoID(params validation.Values) (int, error) {
	raw := params.StringOr("id", "")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NotFound(fmt.Sprintf("Curso con ID %s no encontrado", raw))
	}
	return id, nil
}
