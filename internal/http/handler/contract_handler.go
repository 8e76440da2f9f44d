package handler

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/service"
	"go.uber.org/zap"
)

// maxContractUploadBytes caps contract document uploads at 20 MiB.
const maxContractUploadBytes = 20 << 20

type ContractHandler struct {
	contractService *service.ContractService
	logger          *zap.Logger
}

func NewContractHandler(contractService *service.ContractService, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		logger:          logger,
	}
}

// List godoc
// @Summary List my contracts
// @Tags Contracts
// @Produce json
// @Success 200 {array} domain.ContractDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts [get]
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	contracts, err := h.contractService.ListMine(r.Context(), actor)
	if err != nil {
		h.logger.Error("failed to list contracts", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, contracts)
}

// ListPending godoc
// @Summary List the approval queue
// @Description Contracts awaiting an approval decision, for managers and admins
// @Tags Contracts
// @Produce json
// @Success 200 {array} domain.ContractDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/pending [get]
func (h *ContractHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	contracts, err := h.contractService.ListPending(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, contracts)
}

// ListTeam godoc
// @Summary List team contracts
// @Tags Contracts
// @Produce json
// @Success 200 {array} domain.ContractDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/team [get]
func (h *ContractHandler) ListTeam(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	contracts, err := h.contractService.ListTeam(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, contracts)
}

// Get godoc
// @Summary Get a contract
// @Tags Contracts
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} domain.ContractDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id} [get]
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	contract, err := h.contractService.Get(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, contract)
}

// Create godoc
// @Summary Draft a contract
// @Description Create a pending contract against a deal the user owns
// @Tags Contracts
// @Accept json
// @Produce json
// @Param request body domain.CreateContractRequest true "Contract"
// @Success 201 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts [post]
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())

	var req domain.CreateContractRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	contract, err := h.contractService.Create(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, contract)
}

// Update godoc
// @Summary Update a pending contract
// @Description Edit a draft; only the creator may edit, only while pending
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Param request body domain.UpdateContractRequest true "Changed fields"
// @Success 200 {object} domain.ContractDTO
// @Success 204 "No fields changed"
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id} [put]
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateContractRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, contract, err := h.contractService.Update(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if outcome == service.OutcomeUnchanged {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}

	respondJSON(w, http.StatusOK, contract)
}

// Delete godoc
// @Summary Withdraw a pending contract
// @Tags Contracts
// @Param id path int true "Contract ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id} [delete]
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.contractService.SoftDelete(r.Context(), actor, id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// Approve godoc
// @Summary Approve a contract
// @Description Stamp the contract approved by the acting manager or admin
// @Tags Contracts
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} domain.ContractDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id}/approve [put]
func (h *ContractHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	contract, err := h.contractService.Approve(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, contract)
}

// Reject godoc
// @Summary Reject a contract
// @Tags Contracts
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} domain.ContractDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id}/reject [put]
func (h *ContractHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	contract, err := h.contractService.Reject(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, contract)
}

// MarkPaid godoc
// @Summary Record payment on an approved contract
// @Description Cash payments require inline admin credentials
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Param request body domain.MarkPaidRequest true "Payment details"
// @Success 200 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id}/pay [put]
func (h *ContractHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.MarkPaidRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_, contract, err := h.contractService.MarkPaid(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// An already-paid contract answers with its current state rather
	// than an error.
	respondJSON(w, http.StatusOK, contract)
}

// UploadDocument godoc
// @Summary Attach the signed document
// @Tags Contracts
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Contract ID"
// @Param file formData file true "Document"
// @Success 200 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id}/document [post]
func (h *ContractHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxContractUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing or oversized file upload")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	contract, err := h.contractService.AttachDocument(r.Context(), actor, id, header.Filename, contentType, file)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, contract)
}

// DownloadDocument godoc
// @Summary Download the stored document
// @Tags Contracts
// @Produce application/octet-stream
// @Param id path int true "Contract ID"
// @Success 200 {file} binary
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id}/document [get]
func (h *ContractHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	rc, path, err := h.contractService.DownloadDocument(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream contract document", zap.Int("contractId", id), zap.Error(err))
	}
}
