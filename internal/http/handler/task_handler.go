package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/service"
	"go.uber.org/zap"
)

type TaskHandler struct {
	taskService *service.TaskService
	logger      *zap.Logger
}

func NewTaskHandler(taskService *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// List godoc
// @Summary List my tasks
// @Tags Tasks
// @Produce json
// @Success 200 {array} domain.TaskDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	tasks, err := h.taskService.ListMine(r.Context(), actor)
	if err != nil {
		h.logger.Error("failed to list tasks", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// ListDueSoon godoc
// @Summary List tasks due soon
// @Description Unfinished tasks due within the given window
// @Tags Tasks
// @Produce json
// @Param hours query int false "Window in hours" default(24)
// @Success 200 {array} domain.TaskDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/due [get]
func (h *TaskHandler) ListDueSoon(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	hours, _ := strconv.Atoi(r.URL.Query().Get("hours"))
	if hours < 1 {
		hours = 24
	}

	tasks, err := h.taskService.ListDueSoon(r.Context(), actor, time.Duration(hours)*time.Hour)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// ListTeam godoc
// @Summary List team tasks
// @Tags Tasks
// @Produce json
// @Success 200 {array} domain.TaskDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/team [get]
func (h *TaskHandler) ListTeam(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	tasks, err := h.taskService.ListTeam(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// Get godoc
// @Summary Get a task
// @Tags Tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} domain.TaskDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// Create godoc
// @Summary Create a task
// @Description Record a task assigned to the authenticated user
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body domain.CreateTaskRequest true "Task"
// @Success 201 {object} domain.TaskDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	var req domain.CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Create(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// Update godoc
// @Summary Update a task
// @Description Edit the non-status fields of the user's own task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body domain.UpdateTaskRequest true "Changed fields"
// @Success 200 {object} domain.TaskDTO
// @Success 204 "No fields changed"
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, task, err := h.taskService.Update(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if outcome == service.OutcomeUnchanged {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateStatus godoc
// @Summary Set a task's status
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body domain.UpdateTaskStatusRequest true "New status"
// @Success 200 {object} domain.TaskDTO
// @Success 204 "Status unchanged"
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id}/status [put]
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateTaskStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, task, err := h.taskService.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if outcome == service.OutcomeUnchanged {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// Delete godoc
// @Summary Soft-delete a task
// @Tags Tasks
// @Param id path int true "Task ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.SoftDelete(r.Context(), actor, id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// ManagerUpdate godoc
// @Summary Edit a team member's task
// @Description Manager-scoped edit that may set status or reassign within the team
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body domain.ManagerUpdateTaskRequest true "Changed fields"
// @Success 200 {object} domain.TaskDTO
// @Success 204 "No fields changed"
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id}/manage [put]
func (h *TaskHandler) ManagerUpdate(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.ManagerUpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, task, err := h.taskService.ManagerUpdate(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if outcome == service.OutcomeUnchanged {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// ManagerDelete godoc
// @Summary Soft-delete a team member's task
// @Tags Tasks
// @Param id path int true "Task ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id}/manage [delete]
func (h *TaskHandler) ManagerDelete(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.ManagerSoftDelete(r.Context(), actor, id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
