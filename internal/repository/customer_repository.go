package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/b2bcrm/crm-api/internal/domain"
)

// CustomerRepository handles customer data access
type CustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create inserts a new customer
func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// GetByID retrieves a customer by ID, including soft-deleted rows
func (r *CustomerRepository) GetByID(ctx context.Context, id int) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).Preload("AssignedTo").First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// Save persists all fields of an existing customer
func (r *CustomerRepository) Save(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// ListForUser retrieves active customers assigned to the given user
func (r *CustomerRepository) ListForUser(ctx context.Context, userID int, search string) ([]domain.Customer, error) {
	var customers []domain.Customer
	query := r.db.WithContext(ctx).
		Where("assigned_to_user_id = ? AND is_deleted = ?", userID, false)
	query = applyCustomerSearch(query, search)
	err := query.Order("company_name").Find(&customers).Error
	return customers, err
}

// ListForTeam retrieves active customers assigned to any member of the
// given manager's team
func (r *CustomerRepository) ListForTeam(ctx context.Context, managerID int, search string) ([]domain.Customer, error) {
	var customers []domain.Customer
	query := r.db.WithContext(ctx).
		Preload("AssignedTo").
		Where("is_deleted = ?", false).
		Where("assigned_to_user_id IN (?)",
			r.db.Model(&domain.User{}).Select("id").
				Where("manager_id = ? AND is_deleted = ?", managerID, false),
		)
	query = applyCustomerSearch(query, search)
	err := query.Order("company_name").Find(&customers).Error
	return customers, err
}

// ListUnassigned retrieves active customers without an assigned employee
func (r *CustomerRepository) ListUnassigned(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := r.db.WithContext(ctx).
		Where("assigned_to_user_id IS NULL AND is_deleted = ?", false).
		Order("company_name").
		Find(&customers).Error
	return customers, err
}

// ExistsByContactEmail reports whether another active customer already
// uses the contact email
func (r *CustomerRepository) ExistsByContactEmail(ctx context.Context, email string, excludeID int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Where("LOWER(contact_email) = ? AND is_deleted = ? AND id <> ?",
			strings.ToLower(email), false, excludeID).
		Count(&count).Error
	return count > 0, err
}

// ExistsByContactPhone reports whether another active customer already
// uses the contact phone
func (r *CustomerRepository) ExistsByContactPhone(ctx context.Context, phone string, excludeID int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Where("contact_phone = ? AND is_deleted = ? AND id <> ?", phone, false, excludeID).
		Count(&count).Error
	return count > 0, err
}

// CountAll counts all customers, deleted included. Used to derive the
// next customer code.
func (r *CustomerRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).Count(&count).Error
	return count, err
}

func applyCustomerSearch(query *gorm.DB, search string) *gorm.DB {
	if search == "" {
		return query
	}
	pattern := "%" + strings.ToLower(search) + "%"
	return query.Where("LOWER(company_name) LIKE ? OR LOWER(contact_name) LIKE ?", pattern, pattern)
}
