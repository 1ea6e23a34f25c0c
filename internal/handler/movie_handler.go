package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/schemas"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

const msgMissingCover = "No se subió ningún archivo de carátula"

// MovieHandler handles HTTP requests for the video club
type MovieHandler struct {
	*api
	movies      *service.MovieService
	coverLimit  int64
	uploadGuard func(http.Handler) http.Handler
}

// NewMovieHandler creates a movie handler. coverLimit bounds the cover
// upload body and guard, when set, wraps the upload route.
func NewMovieHandler(movies *service.MovieService, coverLimit int64, guard func(http.Handler) http.Handler, opts APIOptions) *MovieHandler {
	return &MovieHandler{api: newAPI(opts), movies: movies, coverLimit: coverLimit, uploadGuard: guard}
}

// RegisterRoutes registers all movie routes
func (h *MovieHandler) RegisterRoutes(router chi.Router) {
	router.Route("/movies", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/available", h.Available)
		r.Get("/stats/top", h.Top)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/rent", h.Rent)
			r.Post("/return", h.Return)
			r.Post("/rate", h.Rate)
			r.Get("/cover", h.Cover)
			r.With(guardOrPass(h.uploadGuard)).Patch("/cover", h.SetCover)
		})
	})
}

// List handles GET /movies
// @Summary List movies
// @Param genre query string false "Genre"
// @Param search query string false "Title or director"
// @Param available query bool false "Only movies with free copies"
// @Success 200 {object} Response
func (h *MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesList)
	if !ok {
		return
	}
	res, err := h.movies.List(r.Context(), service.MovieFilter{
		Genre:     in.Query.StringOr("genre", ""),
		Search:    in.Query.StringOr("search", ""),
		Available: optionalBool(in.Query, "available"),
		SortBy:    in.Query.StringOr("sortBy", ""),
		Order:     in.Query.StringOr("order", ""),
		Page:      pageOf(in.Query),
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Success: true, Data: res.Data, Pagination: &res.Pagination})
}

// Available handles GET /movies/available
func (h *MovieHandler) Available(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.Available(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	total := len(movies)
	h.respondWithJSON(w, http.StatusOK, Response{Success: true, Data: movies, Total: &total})
}

// Top handles GET /movies/stats/top
func (h *MovieHandler) Top(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.Top(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(movies, ""))
}

// Get handles GET /movies/{id}
// @Param id path string true "Movie ObjectId"
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponse
func (h *MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesGet)
	if !ok {
		return
	}
	movie, err := h.movies.Get(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(movie, ""))
}

// Create handles POST /movies
// @Accept json
// @Success 201 {object} Response
// @Failure 400 {object} validation.ErrorBody
func (h *MovieHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesCreate)
	if !ok {
		return
	}
	movie, err := h.movies.Create(r.Context(), movieInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(movie, ""))
}

// Update handles PUT /movies/{id}
func (h *MovieHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesUpdate)
	if !ok {
		return
	}
	movie, err := h.movies.Update(r.Context(), in.Params.StringOr("id", ""), movieInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(movie, ""))
}

// Delete handles DELETE /movies/{id}
func (h *MovieHandler) Delete(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesGet)
	if !ok {
		return
	}
	if err := h.movies.Delete(r.Context(), in.Params.StringOr("id", "")); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rent handles POST /movies/{id}/rent
// @Failure 409 {object} ErrorResponse "No copies left"
func (h *MovieHandler) Rent(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesGet)
	if !ok {
		return
	}
	movie, msg, err := h.movies.Rent(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(movie, msg))
}

// Return handles POST /movies/{id}/return
// @Failure 409 {object} ErrorResponse "Every copy is already in"
func (h *MovieHandler) Return(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesGet)
	if !ok {
		return
	}
	movie, msg, err := h.movies.Return(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(movie, msg))
}

// Rate handles POST /movies/{id}/rate
func (h *MovieHandler) Rate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesRate)
	if !ok {
		return
	}
	rating, _ := in.Body.Float("rating")
	movie, msg, err := h.movies.Rate(r.Context(), in.Params.StringOr("id", ""), rating)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(movie, msg))
}

// SetCover handles PATCH /movies/{id}/cover with a multipart "cover" file.
func (h *MovieHandler) SetCover(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesGet)
	if !ok {
		return
	}
	upload, release, err := h.formFile(w, r, "cover", h.coverLimit, msgMissingCover)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	defer release()

	res, err := h.movies.SetCover(r.Context(), in.Params.StringOr("id", ""), upload)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Success: true, Data: res.Movie, CoverURL: res.CoverURL})
}

// Cover handles GET /movies/{id}/cover and streams the image.
func (h *MovieHandler) Cover(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.MoviesGet)
	if !ok {
		return
	}
	path, err := h.movies.CoverPath(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	http.ServeFile(w, r, path)
}

func movieInput(body validation.Values) service.MovieInput {
	return service.MovieInput{
		Title:    stringField(body, "title"),
		Director: stringField(body, "director"),
		Year:     intField(body, "year"),
		Genre:    stringField(body, "genre"),
		Copies:   intField(body, "copies"),
	}
}

func guardOrPass(guard func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if guard == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return guard
}
