package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/b2bcrm/crm-api/internal/domain"
)

// ContractRepository handles contract data access
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create inserts a new contract
func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(contract).Error
}

// GetByID retrieves a contract with its deal and the deal's customer,
// including soft-deleted rows
func (r *ContractRepository) GetByID(ctx context.Context, id int) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).
		Preload("Deal").
		Preload("Deal.Customer").
		First(&contract, id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// Save persists all fields of an existing contract
func (r *ContractRepository) Save(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(contract).Error
}

// ListByCreator retrieves active contracts created by the given user
func (r *ContractRepository) ListByCreator(ctx context.Context, userID int) ([]domain.Contract, error) {
	var contracts []domain.Contract
	err := r.db.WithContext(ctx).
		Preload("Deal").
		Where("created_by_user_id = ? AND is_deleted = ?", userID, false).
		Order("created_at DESC").
		Find(&contracts).Error
	return contracts, err
}

// ListPendingApproval retrieves active contracts awaiting approval
func (r *ContractRepository) ListPendingApproval(ctx context.Context) ([]domain.Contract, error) {
	var contracts []domain.Contract
	err := r.db.WithContext(ctx).
		Preload("Deal").
		Preload("CreatedBy").
		Where("approval_status = ? AND is_deleted = ?", domain.ApprovalStatusPending, false).
		Order("created_at").
		Find(&contracts).Error
	return contracts, err
}

// ListForTeam retrieves active contracts created by members of the
// manager's team
func (r *ContractRepository) ListForTeam(ctx context.Context, managerID int) ([]domain.Contract, error) {
	var contracts []domain.Contract
	err := r.db.WithContext(ctx).
		Preload("Deal").
		Joins("JOIN users ON users.id = contracts.created_by_user_id").
		Where("users.manager_id = ? AND users.is_deleted = ?", managerID, false).
		Where("contracts.is_deleted = ?", false).
		Order("contracts.created_at DESC").
		Find(&contracts).Error
	return contracts, err
}
