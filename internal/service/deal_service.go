package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/mapper"
	"github.com/b2bcrm/crm-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DealService struct {
	dealRepo     *repository.DealRepository
	customerRepo *repository.CustomerRepository
	audit        *AuditLogService
	logger       *zap.Logger
}

func NewDealService(
	dealRepo *repository.DealRepository,
	customerRepo *repository.CustomerRepository,
	audit *AuditLogService,
	logger *zap.Logger,
) *DealService {
	return &DealService{
		dealRepo:     dealRepo,
		customerRepo: customerRepo,
		audit:        audit,
		logger:       logger,
	}
}

// Create opens a deal against a customer the actor owns. An unassigned
// customer is claimed by the actor as part of the operation.
func (s *DealService) Create(ctx context.Context, actor *auth.UserContext, req *domain.CreateDealRequest) (*domain.DealDTO, error) {
	if !req.Value.GreaterThan(decimal.Zero) {
		return nil, validationError([]string{"deal value must be greater than zero"})
	}

	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer.IsDeleted {
		return nil, ErrNotFound
	}

	if customer.AssignedToUserID != nil && *customer.AssignedToUserID != actor.UserID {
		return nil, fmt.Errorf("%w: customer is assigned to another user", ErrPermissionDenied)
	}

	if customer.AssignedToUserID == nil {
		assignedID := actor.UserID
		customer.AssignedToUserID = &assignedID
		if err := s.customerRepo.Save(ctx, customer); err != nil {
			return nil, fmt.Errorf("failed to claim customer: %w", err)
		}
	}

	stage := req.Stage
	if stage == "" {
		stage = domain.DealStageLead
	}

	deal := &domain.Deal{
		Title:           req.Title,
		Description:     req.Description,
		CustomerID:      customer.ID,
		Stage:           stage,
		Value:           req.Value,
		Notes:           req.Notes,
		CreatedByUserID: actor.UserID,
	}

	if req.Deadline != nil && *req.Deadline != "" {
		deadline, err := parseDateTime(*req.Deadline)
		if err != nil {
			return nil, validationError([]string{"deadline is not a valid timestamp"})
		}
		deal.Deadline = &deadline
	}

	if err := s.dealRepo.Create(ctx, deal); err != nil {
		// Failed creates still leave a trace so operators can see the
		// attempt. There is no record id to point at yet.
		s.audit.Log(ctx, LogEntry{
			UserID:    &actor.UserID,
			Action:    domain.AuditActionError,
			TableName: "Deals",
			RecordID:  "N/A",
			NewValue:  map[string]interface{}{"error": err.Error(), "title": req.Title},
		})
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}
	deal.Customer = customer

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionCreate,
		TableName: "Deals",
		RecordID:  strconv.Itoa(deal.ID),
		NewValue:  dealSnapshot(deal),
	})

	return mapper.DealToDTO(deal), nil
}

// Update edits the deal's descriptive fields. Only the owner, resolved
// through the customer assignment at call time, may edit.
func (s *DealService) Update(ctx context.Context, actor *auth.UserContext, id int, req *domain.UpdateDealRequest) (Outcome, *domain.DealDTO, error) {
	deal, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	if req.Value != nil && !req.Value.GreaterThan(decimal.Zero) {
		return OutcomeUnchanged, nil, validationError([]string{"deal value must be greater than zero"})
	}

	before := dealSnapshot(deal)
	changed := false

	if req.Title != nil && *req.Title != deal.Title {
		deal.Title = *req.Title
		changed = true
	}
	if req.Description != nil && *req.Description != deal.Description {
		deal.Description = *req.Description
		changed = true
	}
	if req.Value != nil && !req.Value.Equal(deal.Value) {
		deal.Value = *req.Value
		changed = true
	}
	if req.Notes != nil && *req.Notes != deal.Notes {
		deal.Notes = *req.Notes
		changed = true
	}
	if req.Deadline != nil {
		if *req.Deadline == "" {
			if deal.Deadline != nil {
				deal.Deadline = nil
				changed = true
			}
		} else {
			deadline, err := parseDateTime(*req.Deadline)
			if err != nil {
				return OutcomeUnchanged, nil, validationError([]string{"deadline is not a valid timestamp"})
			}
			if deal.Deadline == nil || !deal.Deadline.Equal(deadline) {
				deal.Deadline = &deadline
				changed = true
			}
		}
	}

	if !changed {
		return OutcomeUnchanged, mapper.DealToDTO(deal), nil
	}

	if err := s.dealRepo.Save(ctx, deal); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to update deal: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Deals",
		RecordID:  strconv.Itoa(deal.ID),
		OldValue:  before,
		NewValue:  dealSnapshot(deal),
	})

	return OutcomeChanged, mapper.DealToDTO(deal), nil
}

// UpdateStage moves the deal to a new pipeline stage. Stages are free
// text so teams can shape their own pipeline; only empty is rejected.
func (s *DealService) UpdateStage(ctx context.Context, actor *auth.UserContext, id int, stage string) (Outcome, *domain.DealDTO, error) {
	if stage == "" {
		return OutcomeUnchanged, nil, validationError([]string{"stage must not be empty"})
	}

	deal, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	if deal.Stage == stage {
		return OutcomeUnchanged, mapper.DealToDTO(deal), nil
	}

	before := dealSnapshot(deal)
	deal.Stage = stage

	if err := s.dealRepo.Save(ctx, deal); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to update deal stage: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Deals",
		RecordID:  strconv.Itoa(deal.ID),
		OldValue:  before,
		NewValue:  dealSnapshot(deal),
	})

	return OutcomeChanged, mapper.DealToDTO(deal), nil
}

// SoftDelete hides the deal from listings.
func (s *DealService) SoftDelete(ctx context.Context, actor *auth.UserContext, id int) error {
	deal, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}

	before := dealSnapshot(deal)
	deal.IsDeleted = true

	if err := s.dealRepo.Save(ctx, deal); err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionDelete,
		TableName: "Deals",
		RecordID:  strconv.Itoa(deal.ID),
		OldValue:  before,
	})

	return nil
}

// Get returns a deal the actor may see: the owner, a manager over the
// owner, or an admin.
func (s *DealService) Get(ctx context.Context, actor *auth.UserContext, id int) (*domain.DealDTO, error) {
	deal, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerID := deal.OwnerID(); ownerID == nil || *ownerID != actor.UserID {
		if !actor.IsManager() && !actor.IsAdmin() {
			return nil, ErrPermissionDenied
		}
	}
	return mapper.DealToDTO(deal), nil
}

// ListMine returns deals whose customer is assigned to the actor.
func (s *DealService) ListMine(ctx context.Context, actor *auth.UserContext) ([]*domain.DealDTO, error) {
	deals, err := s.dealRepo.ListForOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	return mapper.DealsToDTOs(deals), nil
}

// ListByCustomer returns the deals recorded against one customer. Read
// scope matches Get: the customer's assignee, a manager, or an admin.
func (s *DealService) ListByCustomer(ctx context.Context, actor *auth.UserContext, customerID int) ([]*domain.DealDTO, error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer.IsDeleted {
		return nil, ErrNotFound
	}
	if customer.AssignedToUserID == nil || *customer.AssignedToUserID != actor.UserID {
		if !actor.IsManager() && !actor.IsAdmin() {
			return nil, ErrPermissionDenied
		}
	}

	deals, err := s.dealRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	return mapper.DealsToDTOs(deals), nil
}

// ListTeam returns every deal owned by a member of the acting manager's
// team.
func (s *DealService) ListTeam(ctx context.Context, actor *auth.UserContext) ([]*domain.DealDTO, error) {
	if !actor.IsManager() {
		return nil, ErrPermissionDenied
	}
	deals, err := s.dealRepo.ListForTeam(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team deals: %w", err)
	}
	return mapper.DealsToDTOs(deals), nil
}

// PipelineSummary aggregates team deals per stage for the manager view.
func (s *DealService) PipelineSummary(ctx context.Context, actor *auth.UserContext) ([]domain.PipelineStageSummary, error) {
	if !actor.IsManager() {
		return nil, ErrPermissionDenied
	}
	summary, err := s.dealRepo.PipelineSummaryForTeam(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize pipeline: %w", err)
	}
	return summary, nil
}

func (s *DealService) loadActive(ctx context.Context, id int) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load deal: %w", err)
	}
	if deal.IsDeleted {
		return nil, ErrNotFound
	}
	return deal, nil
}

// loadOwned loads the deal and checks ownership against the current
// customer assignment, so a reassigned customer immediately changes who
// may act on its deals.
func (s *DealService) loadOwned(ctx context.Context, actor *auth.UserContext, id int) (*domain.Deal, error) {
	deal, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	ownerID := deal.OwnerID()
	if ownerID == nil || *ownerID != actor.UserID {
		return nil, ErrPermissionDenied
	}
	return deal, nil
}
