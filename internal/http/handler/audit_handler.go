package handler

import (
	"net/http"
	"strconv"

	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/mapper"
	"github.com/b2bcrm/crm-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuditHandler exposes the audit trail to admins. The trail itself is
// append-only; there are no mutation endpoints.
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

type auditListResponse struct {
	Total int64                 `json:"total"`
	Items []*domain.AuditLogDTO `json:"items"`
}

// List godoc
// @Summary List audit log entries
// @Description Filterable, paginated view of the audit trail
// @Tags Audit
// @Produce json
// @Param userId query int false "Filter by acting user"
// @Param action query string false "Filter by action" Enums(Create, Update, Delete, Login, Logout, Restore, Error)
// @Param tableName query string false "Filter by entity table"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} auditListResponse
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/audit-logs [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := &domain.AuditLogFilter{
		Action:    r.URL.Query().Get("action"),
		TableName: r.URL.Query().Get("tableName"),
	}
	if v := r.URL.Query().Get("userId"); v != "" {
		if userID, err := strconv.Atoi(v); err == nil && userID > 0 {
			filter.UserID = &userID
		}
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	entries, total, err := h.auditService.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list audit logs", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, auditListResponse{
		Total: total,
		Items: mapper.AuditLogsToDTOs(entries),
	})
}

// ListByRecord godoc
// @Summary Audit trail of one record
// @Tags Audit
// @Produce json
// @Param tableName path string true "Entity table"
// @Param recordId path string true "Record ID"
// @Param limit query int false "Page size" default(50)
// @Success 200 {array} domain.AuditLogDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/audit-logs/{tableName}/{recordId} [get]
func (h *AuditHandler) ListByRecord(w http.ResponseWriter, r *http.Request) {
	tableName := chi.URLParam(r, "tableName")
	recordID := chi.URLParam(r, "recordId")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.auditService.GetByRecord(r.Context(), tableName, recordID, limit)
	if err != nil {
		h.logger.Error("failed to list record audit trail", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapper.AuditLogsToDTOs(entries))
}

// ListByUser godoc
// @Summary Audit trail of one user's actions
// @Tags Audit
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Page size" default(50)
// @Success 200 {array} domain.AuditLogDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/audit-logs/users/{id} [get]
func (h *AuditHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.auditService.GetByUser(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to list user audit trail", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapper.AuditLogsToDTOs(entries))
}
