package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/mapper"
	"github.com/b2bcrm/crm-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TicketService struct {
	ticketRepo   *repository.TicketRepository
	customerRepo *repository.CustomerRepository
	audit        *AuditLogService
	logger       *zap.Logger
}

func NewTicketService(
	ticketRepo *repository.TicketRepository,
	customerRepo *repository.CustomerRepository,
	audit *AuditLogService,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo:   ticketRepo,
		customerRepo: customerRepo,
		audit:        audit,
		logger:       logger,
	}
}

// Create opens a support ticket against an active customer.
func (s *TicketService) Create(ctx context.Context, actor *auth.UserContext, req *domain.CreateTicketRequest) (*domain.TicketDTO, error) {
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

	ticket := &domain.SupportTicket{
		ID:              uuid.New(),
		Subject:         req.Subject,
		Body:            req.Body,
		Status:          domain.TicketStatusOpen,
		CustomerID:      customer.ID,
		CreatedByUserID: actor.UserID,
	}

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionCreate,
		TableName: "SupportTickets",
		RecordID:  ticket.ID.String(),
		NewValue:  ticketSnapshot(ticket),
	})

	return mapper.TicketToDTO(ticket), nil
}

// Close marks the ticket resolved. Closing an already-closed ticket is
// a no-op.
func (s *TicketService) Close(ctx context.Context, actor *auth.UserContext, id uuid.UUID) (Outcome, *domain.TicketDTO, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeUnchanged, nil, ErrNotFound
		}
		return OutcomeUnchanged, nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	if ticket.CreatedByUserID != actor.UserID && !actor.IsManager() && !actor.IsAdmin() {
		return OutcomeUnchanged, nil, ErrPermissionDenied
	}

	if ticket.Status == domain.TicketStatusClosed {
		return OutcomeUnchanged, mapper.TicketToDTO(ticket), nil
	}

	before := ticketSnapshot(ticket)
	now := time.Now().UTC()
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now

	if err := s.ticketRepo.Save(ctx, ticket); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to close ticket: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "SupportTickets",
		RecordID:  ticket.ID.String(),
		OldValue:  before,
		NewValue:  ticketSnapshot(ticket),
	})

	return OutcomeChanged, mapper.TicketToDTO(ticket), nil
}

// ListMine returns tickets the actor opened.
func (s *TicketService) ListMine(ctx context.Context, actor *auth.UserContext) ([]*domain.TicketDTO, error) {
	tickets, err := s.ticketRepo.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return mapper.TicketsToDTOs(tickets), nil
}

// ListByCustomer returns all tickets filed against one customer. Read
// scope is the customer's assignee, a manager, or an admin.
func (s *TicketService) ListByCustomer(ctx context.Context, actor *auth.UserContext, customerID int) ([]*domain.TicketDTO, error) {
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

	tickets, err := s.ticketRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return mapper.TicketsToDTOs(tickets), nil
}
