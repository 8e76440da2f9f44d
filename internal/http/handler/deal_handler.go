package handler

import (
	"net/http"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/service"
	"go.uber.org/zap"
)

type DealHandler struct {
	dealService *service.DealService
	logger      *zap.Logger
}

func NewDealHandler(dealService *service.DealService, logger *zap.Logger) *DealHandler {
	return &DealHandler{
		dealService: dealService,
		logger:      logger,
	}
}

// List godoc
// @Summary List my deals
// @Description Get the deals whose customer is assigned to the authenticated user
// @Tags Deals
// @Produce json
// @Success 200 {array} domain.DealDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /deals [get]
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	deals, err := h.dealService.ListMine(r.Context(), actor)
	if err != nil {
		h.logger.Error("failed to list deals", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, deals)
}

// ListForCustomer godoc
// @Summary List a customer's deals
// @Tags Customers
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {array} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/{id}/deals [get]
func (h *DealHandler) ListForCustomer(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	deals, err := h.dealService.ListByCustomer(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, deals)
}

// ListTeam godoc
// @Summary List team deals
// @Tags Deals
// @Produce json
// @Success 200 {array} domain.DealDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /deals/team [get]
func (h *DealHandler) ListTeam(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	deals, err := h.dealService.ListTeam(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, deals)
}

// Pipeline godoc
// @Summary Team pipeline summary
// @Description Aggregate team deal counts and value per stage
// @Tags Deals
// @Produce json
// @Success 200 {array} domain.PipelineStageSummary
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /deals/pipeline [get]
func (h *DealHandler) Pipeline(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	summary, err := h.dealService.PipelineSummary(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Get godoc
// @Summary Get a deal
// @Tags Deals
// @Produce json
// @Param id path int true "Deal ID"
// @Success 200 {object} domain.DealDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /deals/{id} [get]
func (h *DealHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	deal, err := h.dealService.Get(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// Create godoc
// @Summary Open a deal
// @Description Create a deal against a customer the user owns or claims
// @Tags Deals
// @Accept json
// @Produce json
// @Param request body domain.CreateDealRequest true "Deal"
// @Success 201 {object} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /deals [post]
func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	var req domain.CreateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	deal, err := h.dealService.Create(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, deal)
}

// Update godoc
// @Summary Update a deal
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path int true "Deal ID"
// @Param request body domain.UpdateDealRequest true "Changed fields"
// @Success 200 {object} domain.DealDTO
// @Success 204 "No fields changed"
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /deals/{id} [put]
func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, deal, err := h.dealService.Update(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if outcome == service.OutcomeUnchanged {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// UpdateStage godoc
// @Summary Move a deal to another stage
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path int true "Deal ID"
// @Param request body domain.UpdateDealStageRequest true "New stage"
// @Success 200 {object} domain.DealDTO
// @Success 204 "Stage unchanged"
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /deals/{id}/stage [put]
func (h *DealHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateDealStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, deal, err := h.dealService.UpdateStage(r.Context(), actor, id, req.Stage)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if outcome == service.OutcomeUnchanged {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// Delete godoc
// @Summary Soft-delete a deal
// @Tags Deals
// @Param id path int true "Deal ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /deals/{id} [delete]
func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.dealService.SoftDelete(r.Context(), actor, id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
