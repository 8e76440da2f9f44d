package handler

import (
	"net/http"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/service"
	"go.uber.org/zap"
)

// UserHandler is the admin account-management surface, plus the
// manager team listing.
type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// List godoc
// @Summary List user accounts
// @Tags Users
// @Produce json
// @Param includeDeleted query bool false "Include soft-deleted accounts"
// @Success 200 {array} domain.UserDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"

	users, err := h.userService.List(r.Context(), includeDeleted)
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, users)
}

// Get godoc
// @Summary Get a user account
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} domain.UserDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// Create godoc
// @Summary Provision a user account
// @Description Create an employee or manager account with a temporary password
// @Tags Users
// @Accept json
// @Produce json
// @Param request body domain.CreateUserRequest true "Account"
// @Success 201 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	var req domain.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Update godoc
// @Summary Update a user account
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body domain.UpdateUserRequest true "Changed fields"
// @Success 200 {object} domain.UserDTO
// @Success 204 "No fields changed"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users/{id} [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, user, err := h.userService.Update(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if outcome == service.OutcomeUnchanged {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// ToggleLock godoc
// @Summary Lock or unlock an account
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} domain.UserDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users/{id}/lock [put]
func (h *UserHandler) ToggleLock(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.userService.ToggleLock(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// Delete godoc
// @Summary Soft-delete a user account
// @Tags Users
// @Param id path int true "User ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.userService.SoftDelete(r.Context(), actor, id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// Restore godoc
// @Summary Restore a soft-deleted account
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} domain.UserDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users/{id}/restore [put]
func (h *UserHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.userService.Restore(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// ChangeRole godoc
// @Summary Change an account's role
// @Description Switch between employee and manager; promotion to admin is not available
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body domain.ChangeRoleRequest true "New role"
// @Success 200 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users/{id}/role [put]
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.ChangeRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.ChangeRole(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

type resetPasswordRequest struct {
	TemporaryPassword string `json:"temporaryPassword" validate:"required,min=8"`
}

// ResetPassword godoc
// @Summary Reset an account's password
// @Description Set a temporary password the user must change at next login
// @Tags Users
// @Accept json
// @Param id path int true "User ID"
// @Param request body resetPasswordRequest true "Temporary password"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users/{id}/password [put]
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req resetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.userService.ForceChangePassword(r.Context(), actor, id, req.TemporaryPassword); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// ListTeam godoc
// @Summary List the manager's team
// @Tags Users
// @Produce json
// @Success 200 {array} domain.UserDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /users/team [get]
func (h *UserHandler) ListTeam(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	users, err := h.userService.ListTeam(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, users)
}
