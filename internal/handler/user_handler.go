package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/schemas"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	*api
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, opts APIOptions) *UserHandler {
	return &UserHandler{api: newAPI(opts), userService: userService}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUserByID)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// ListUsers handles user listing
// @Summary List users
// @Description Newest first, filtered by role and active flag
// @Tags users
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param role query string false "user or admin"
// @Param isActive query bool false "Active flag"
// @Success 200 {object} Response
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.UsersList)
	if !ok {
		return
	}
	res, err := h.userService.List(r.Context(), service.UserFilter{
		Role:     in.Query.StringOr("role", ""),
		IsActive: optionalBool(in.Query, "isActive"),
		Page:     pageOf(in.Query),
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Success: true, Data: res.Data, Pagination: &res.Pagination})
}

// CreateUser handles user creation
// @Summary Create a new user
// @Tags users
// @Accept json
// @Produce json
// @Success 201 {object} Response
// @Failure 400 {object} validation.ErrorBody
// @Failure 409 {object} ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	in, ok := h.bind(w, r, schemas.UsersCreate)
	if !ok {
		return
	}

	user, err := h.userService.Create(r.Context(), userInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, successResponse(user, ""))
	h.logger.Info("User created via HTTP",
		util.String("user_id", user.ID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "CreateUser"),
	)
}

// GetUserByID handles user retrieval by ID
// @Summary Get user by ID
// @Tags users
// @Param id path string true "User ObjectId"
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.UsersGet)
	if !ok {
		return
	}
	user, err := h.userService.Get(r.Context(), in.Params.StringOr("id", ""))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(user, ""))
}

// UpdateUser handles user updates
// @Summary Update a user
// @Tags users
// @Accept json
// @Param id path string true "User ObjectId"
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	in, ok := h.bind(w, r, schemas.UsersUpdate)
	if !ok {
		return
	}

	user, err := h.userService.Update(r.Context(), in.Params.StringOr("id", ""), userInput(in.Body))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(user, ""))
	h.logger.Debug("User updated via HTTP",
		util.String("user_id", user.ID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "UpdateUser"),
	)
}

// DeleteUser handles user deletion
// @Summary Delete a user
// @Tags users
// @Param id path string true "User ObjectId"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r, schemas.UsersGet)
	if !ok {
		return
	}
	if err := h.userService.Delete(r.Context(), in.Params.StringOr("id", "")); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userInput(body validation.Values) service.UserInput {
	return service.UserInput{
		Name:     stringField(body, "name"),
		Email:    stringField(body, "email"),
		Password: stringField(body, "password"),
		Role:     stringField(body, "role"),
		Avatar:   stringField(body, "avatar"),
		IsActive: boolField(body, "isActive"),
	}
}
