package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/b2bcrm/crm-api/internal/domain"
)

// DealRepository handles deal data access. Deals are always loaded with
// their customer so ownership can be resolved through the assignment.
type DealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// Create inserts a new deal
func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	// Omit associations to avoid GORM trying to upsert related records
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(deal).Error
}

// GetByID retrieves a deal with its customer, including soft-deleted rows
func (r *DealRepository) GetByID(ctx context.Context, id int) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).Preload("Customer").First(&deal, id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// Save persists all fields of an existing deal
func (r *DealRepository) Save(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(deal).Error
}

// ListForOwner retrieves active deals whose customer is assigned to the user
func (r *DealRepository) ListForOwner(ctx context.Context, userID int) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Joins("JOIN customers ON customers.id = deals.customer_id").
		Where("customers.assigned_to_user_id = ?", userID).
		Where("deals.is_deleted = ?", false).
		Order("deals.created_at DESC").
		Find(&deals).Error
	return deals, err
}

// ListForTeam retrieves active deals whose customer is assigned to any
// member of the manager's team
func (r *DealRepository) ListForTeam(ctx context.Context, managerID int) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Joins("JOIN customers ON customers.id = deals.customer_id").
		Joins("JOIN users ON users.id = customers.assigned_to_user_id").
		Where("users.manager_id = ? AND users.is_deleted = ?", managerID, false).
		Where("deals.is_deleted = ?", false).
		Order("deals.created_at DESC").
		Find(&deals).Error
	return deals, err
}

// ListByCustomer retrieves active deals for a customer
func (r *DealRepository) ListByCustomer(ctx context.Context, customerID int) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND is_deleted = ?", customerID, false).
		Order("created_at DESC").
		Find(&deals).Error
	return deals, err
}

// PipelineSummaryForTeam aggregates active team deals by stage
func (r *DealRepository) PipelineSummaryForTeam(ctx context.Context, managerID int) ([]domain.PipelineStageSummary, error) {
	var rows []domain.PipelineStageSummary
	err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Select("deals.stage AS stage, COUNT(*) AS deal_count, SUM(deals.value) AS total_value").
		Joins("JOIN customers ON customers.id = deals.customer_id").
		Joins("JOIN users ON users.id = customers.assigned_to_user_id").
		Where("users.manager_id = ? AND users.is_deleted = ?", managerID, false).
		Where("deals.is_deleted = ?", false).
		Group("deals.stage").
		Scan(&rows).Error
	return rows, err
}
