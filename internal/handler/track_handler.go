package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/schemas"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

// TrackHandler serves tracks with their users resolved.
type TrackHandler struct {
	*api
	tracks *service.TrackService
}

func NewTrackHandler(tracks *service.TrackService, opts APIOptions) *TrackHandler {
	return &TrackHandler{api: newAPI(opts), tracks: tracks}
}

func (h *TrackHandler) RegisterRoutes(router chi.Router) {
	router.Route("/tracks", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *TrackHandler) List(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TracksList)
	if !ok {
		return
	}
	res, err := h.tracks.List(r.Context(), service.TrackFilter{
		Genre:  in.Query.StringOr("genre", ""),
		Artist: in.Query.StringOr("artist", ""),
		SortBy: in.Query.StringOr("sortBy", ""),
		Order:  in.Query.StringOr("order", ""),
		Page:   pageOf(in.Query),
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Success: true, Data: res.Data, Pagination: &res.Pagination})
}

func (h *TrackHandler) Get(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TracksGet)
	if !ok {
		return
	}
	track, err := h.tracks.Get(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(track, ""))
}

func (h *TrackHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TracksCreate)
	if !ok {
		return
	}
	track, err := h.tracks.Create(r.Context(), trackInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(track, ""))
}

func (h *TrackHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TracksUpdate)
	if !ok {
		return
	}
	track, err := h.tracks.Update(r.Context(), in.Params.StringOr("id", ""), trackInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(track, ""))
}

func (h *TrackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.TracksGet)
	if !ok {
		return
	}
	if err := h.tracks.Delete(r.Context(), in.Params.StringOr("id", "")); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func trackInput(body validation.Values) service.TrackInput {
	return service.TrackInput{
		Title:         stringField(body, "title"),
		Duration:      intField(body, "duration"),
		Artist:        stringField(body, "artist"),
		Collaborators: stringsField(body, "collaborators"),
		Genres:        stringsField(body, "genres"),
		Plays:         intField(body, "plays"),
		ReleaseDate:   timeField(body, "releaseDate"),
	}
}
