package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/schemas"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
)

const msgMissingFile = "No se subió ningún archivo"

// StorageHandler accepts uploads and serves their metadata.
type StorageHandler struct {
	*api
	storage     *service.StorageService
	fileLimit   int64
	uploadGuard func(http.Handler) http.Handler
}

func NewStorageHandler(storage *service.StorageService, fileLimit int64, guard func(http.Handler) http.Handler, opts APIOptions) *StorageHandler {
	return &StorageHandler{api: newAPI(opts), storage: storage, fileLimit: fileLimit, uploadGuard: guard}
}

func (h *StorageHandler) RegisterRoutes(router chi.Router) {
	router.Route("/storage", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(guardOrPass(h.uploadGuard)).Post("/", h.Upload)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
	})
}

// Upload handles POST /storage with a multipart "file".
func (h *StorageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	upload, release, err := h.formFile(w, r, "file", h.fileLimit, msgMissingFile)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	defer release()

	f, err := h.storage.Upload(r.Context(), upload)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(f, ""))
}

func (h *StorageHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.storage.List(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(files, ""))
}

func (h *StorageHandler) Get(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.StorageGet)
	if !ok {
		return
	}
	f, err := h.storage.Get(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(f, ""))
}

func (h *StorageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.StorageGet)
	if !ok {
		return
	}
	if err := h.storage.Delete(r.Context(), in.Params.StringOr("id", "")); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
