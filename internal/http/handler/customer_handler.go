package handler

import (
	"net/http"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/service"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	customerService *service.CustomerService
	ticketService   *service.TicketService
	logger          *zap.Logger
}

func NewCustomerHandler(customerService *service.CustomerService, ticketService *service.TicketService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		ticketService:   ticketService,
		logger:          logger,
	}
}

// List godoc
// @Summary List my customers
// @Description Get the customers assigned to the authenticated user
// @Tags Customers
// @Produce json
// @Param search query string false "Search by company name, code, or contact"
// @Success 200 {array} domain.CustomerDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /customers [get]
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	customers, err := h.customerService.ListMine(r.Context(), actor, r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("failed to list customers", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, customers)
}

// ListTeam godoc
// @Summary List team customers
// @Description Get every customer assigned to a member of the manager's team
// @Tags Customers
// @Produce json
// @Param search query string false "Search by company name, code, or contact"
// @Success 200 {array} domain.CustomerDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/team [get]
func (h *CustomerHandler) ListTeam(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	customers, err := h.customerService.ListTeam(r.Context(), actor, r.URL.Query().Get("search"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, customers)
}

// ListUnassigned godoc
// @Summary List unassigned customers
// @Tags Customers
// @Produce json
// @Success 200 {array} domain.CustomerDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/unassigned [get]
func (h *CustomerHandler) ListUnassigned(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	customers, err := h.customerService.ListUnassigned(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, customers)
}

// Get godoc
// @Summary Get a customer
// @Tags Customers
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {object} domain.CustomerDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/{id} [get]
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	customer, err := h.customerService.Get(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, customer)
}

// Create godoc
// @Summary Register a customer
// @Description Create a customer assigned to the authenticated user
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body domain.CreateCustomerRequest true "Customer"
// @Success 201 {object} domain.CustomerDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /customers [post]
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	var req domain.CreateCustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	customer, err := h.customerService.Create(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, customer)
}

// Update godoc
// @Summary Update a customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path int true "Customer ID"
// @Param request body domain.UpdateCustomerRequest true "Changed fields"
// @Success 200 {object} domain.CustomerDTO
// @Success 204 "No fields changed"
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/{id} [put]
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateCustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, customer, err := h.customerService.Update(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if outcome == service.OutcomeUnchanged {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}

	respondJSON(w, http.StatusOK, customer)
}

// Delete godoc
// @Summary Soft-delete a customer
// @Tags Customers
// @Param id path int true "Customer ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/{id} [delete]
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.customerService.SoftDelete(r.Context(), actor, id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// Reassign godoc
// @Summary Reassign a customer
// @Description Move the customer to another member of the manager's team
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path int true "Customer ID"
// @Param request body domain.ReassignCustomerRequest true "New assignee"
// @Success 200 {object} domain.CustomerDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/{id}/reassign [put]
func (h *CustomerHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.ReassignCustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	customer, err := h.customerService.Reassign(r.Context(), actor, id, req.AssignedToUserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, customer)
}

// ToggleVIP godoc
// @Summary Toggle the VIP flag
// @Tags Customers
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {object} domain.CustomerDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/{id}/vip [put]
func (h *CustomerHandler) ToggleVIP(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	customer, err := h.customerService.ToggleVIP(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, customer)
}

// ListTickets godoc
// @Summary List a customer's support tickets
// @Tags Customers
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {array} domain.TicketDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/{id}/tickets [get]
func (h *CustomerHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	tickets, err := h.ticketService.ListByCustomer(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tickets)
}
