package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/b2bcrm/crm-api/internal/domain"
)

// UserRepository handles user data access
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by ID, including soft-deleted rows.
// Callers decide whether a deleted row counts as found.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Preload("Manager").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a non-deleted user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("username = ? AND is_deleted = ?", username, false).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUserCode retrieves a non-deleted user by user code
func (r *UserRepository) GetByUserCode(ctx context.Context, userCode string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("user_code = ? AND is_deleted = ?", userCode, false).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Save persists all fields of an existing user
func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// List retrieves users, optionally including soft-deleted rows
func (r *UserRepository) List(ctx context.Context, includeDeleted bool) ([]domain.User, error) {
	var users []domain.User
	query := r.db.WithContext(ctx).Preload("Manager").Order("user_code")
	if !includeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	err := query.Find(&users).Error
	return users, err
}

// ListTeam retrieves the active users reporting to the given manager
func (r *UserRepository) ListTeam(ctx context.Context, managerID int) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("manager_id = ? AND is_deleted = ?", managerID, false).
		Order("user_code").
		Find(&users).Error
	return users, err
}

// IsTeamMember reports whether the user reports to the given manager
// and is not soft-deleted
func (r *UserRepository) IsTeamMember(ctx context.Context, managerID, userID int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND manager_id = ? AND is_deleted = ?", userID, managerID, false).
		Count(&count).Error
	return count > 0, err
}

// ExistsByUsername reports whether any user (deleted included) holds the username
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}

// ExistsByUserCode reports whether any user (deleted included) holds the user code
func (r *UserRepository) ExistsByUserCode(ctx context.Context, userCode string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("user_code = ?", userCode).
		Count(&count).Error
	return count > 0, err
}
