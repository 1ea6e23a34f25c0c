package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/schemas"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

type UsuarioHandler struct {
	*api
	usuarios *service.UsuarioService
}

func NewUsuarioHandler(usuarios *service.UsuarioService, opts APIOptions) *UsuarioHandler {
	return &UsuarioHandler{api: newAPI(opts), usuarios: usuarios}
}

func (h *UsuarioHandler) RegisterRoutes(router chi.Router) {
	router.Route("/usuarios", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Replace)
		r.Patch("/{id}", h.Patch)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *UsuarioHandler) List(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.UsuariosList)
	if !ok {
		return
	}
	usuarios := h.usuarios.List(r.Context(), service.UsuarioFilter{
		Nivel: in.Query.StringOr("nivel", ""),
		Orden: in.Query.StringOr("orden", ""),
	})
	total := len(usuarios)
	h.respondWithJSON(w, http.StatusOK, Response{Success: true, Data: usuarios, Total: &total})
}

func (h *UsuarioHandler) Get(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.UsuariosGet)
	if !ok {
		return
	}
	id, err := usuarioID(in.Params)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	u, err := h.usuarios.Get(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(u, ""))
}

func (h *UsuarioHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.UsuariosCreate)
	if !ok {
		return
	}
	u, err := h.usuarios.Create(r.Context(), usuarioInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(u, ""))
}

// Replace handles PUT /usuarios/{id}. Fields not sent keep their value.
func (h *UsuarioHandler) Replace(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.UsuariosUpdate)
	if !ok {
		return
	}
	id, err := usuarioID(in.Params)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	u, err := h.usuarios.Replace(r.Context(), id, usuarioInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(u, ""))
}

func (h *UsuarioHandler) Patch(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.UsuariosUpdate)
	if !ok {
		return
	}
	id, err := usuarioID(in.Params)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	u, err := h.usuarios.Patch(r.Context(), id, usuarioInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(u, ""))
}

func (h *UsuarioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.UsuariosGet)
	if !ok {
		return
	}
	id, err := usuarioID(in.Params)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	if err := h.usuarios.Delete(r.Context(), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func usuarioInput(body validation.Values) service.UsuarioInput {
	return service.UsuarioInput{
		Name:  stringField(body, "name"),
		Nivel: stringField(body, "nivel"),
	}
}

func usuarioID(params validation.Values) (int, error) {
	raw := params.StringOr("id", "")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NotFound(fmt.Sprintf("Usuario con ID %s no encontrado", raw))
	}
	return id, nil
}
