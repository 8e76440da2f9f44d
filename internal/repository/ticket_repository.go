package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/b2bcrm/crm-api/internal/domain"
)

// TicketRepository handles support ticket data access
type TicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create inserts a new ticket
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.SupportTicket) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(ticket).Error
}

// GetByID retrieves a ticket with its customer
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SupportTicket, error) {
	var ticket domain.SupportTicket
	err := r.db.WithContext(ctx).
		Preload("Customer").
		First(&ticket, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Save persists all fields of an existing ticket
func (r *TicketRepository) Save(ctx context.Context, ticket *domain.SupportTicket) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(ticket).Error
}

// ListForUser retrieves tickets created by the given user
func (r *TicketRepository) ListForUser(ctx context.Context, userID int) ([]domain.SupportTicket, error) {
	var tickets []domain.SupportTicket
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("created_by_user_id = ?", userID).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

// ListByCustomer retrieves tickets for a customer
func (r *TicketRepository) ListByCustomer(ctx context.Context, customerID int) ([]domain.SupportTicket, error) {
	var tickets []domain.SupportTicket
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}
