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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CustomerService struct {
	customerRepo *repository.CustomerRepository
	userRepo     *repository.UserRepository
	audit        *AuditLogService
	logger       *zap.Logger
}

func NewCustomerService(
	customerRepo *repository.CustomerRepository,
	userRepo *repository.UserRepository,
	audit *AuditLogService,
	logger *zap.Logger,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		userRepo:     userRepo,
		audit:        audit,
		logger:       logger,
	}
}

// Create registers a customer and assigns it to the creating user.
func (s *CustomerService) Create(ctx context.Context, actor *auth.UserContext, req *domain.CreateCustomerRequest) (*domain.CustomerDTO, error) {
	if err := s.validateContact(ctx, req.ContactEmail, req.ContactPhone, 0); err != nil {
		return nil, err
	}

	code, err := s.nextCustomerCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate customer code: %w", err)
	}

	assignedID := actor.UserID
	customer := &domain.Customer{
		CustomerCode:     code,
		CompanyName:      req.CompanyName,
		Industry:         req.Industry,
		Scale:            req.Scale,
		Address:          req.Address,
		ContactName:      req.ContactName,
		ContactTitle:     req.ContactTitle,
		ContactEmail:     req.ContactEmail,
		ContactPhone:     req.ContactPhone,
		Notes:            req.Notes,
		AssignedToUserID: &assignedID,
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionCreate,
		TableName: "Customers",
		RecordID:  strconv.Itoa(customer.ID),
		NewValue:  customerSnapshot(customer),
	})

	return mapper.CustomerToDTO(customer), nil
}

// Update applies the changed fields and reports whether anything changed.
// Unchanged submissions do not touch the database or the audit trail.
func (s *CustomerService) Update(ctx context.Context, actor *auth.UserContext, id int, req *domain.UpdateCustomerRequest) (Outcome, *domain.CustomerDTO, error) {
	customer, err := s.loadActive(ctx, id)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	allowed, err := s.canManage(ctx, actor, customer)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}
	if !allowed {
		return OutcomeUnchanged, nil, ErrPermissionDenied
	}

	before := customerSnapshot(customer)
	changed := false

	setStr := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}

	if req.ContactEmail != nil && *req.ContactEmail != customer.ContactEmail {
		if err := s.validateContact(ctx, *req.ContactEmail, customer.ContactPhone, customer.ID); err != nil {
			return OutcomeUnchanged, nil, err
		}
	}
	if req.ContactPhone != nil && *req.ContactPhone != customer.ContactPhone {
		if err := s.validateContact(ctx, customer.ContactEmail, *req.ContactPhone, customer.ID); err != nil {
			return OutcomeUnchanged, nil, err
		}
	}

	setStr(&customer.CompanyName, req.CompanyName)
	setStr(&customer.Industry, req.Industry)
	setStr(&customer.Scale, req.Scale)
	setStr(&customer.Address, req.Address)
	setStr(&customer.ContactName, req.ContactName)
	setStr(&customer.ContactTitle, req.ContactTitle)
	setStr(&customer.ContactEmail, req.ContactEmail)
	setStr(&customer.ContactPhone, req.ContactPhone)
	setStr(&customer.Notes, req.Notes)

	if !changed {
		return OutcomeUnchanged, mapper.CustomerToDTO(customer), nil
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to update customer: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Customers",
		RecordID:  strconv.Itoa(customer.ID),
		OldValue:  before,
		NewValue:  customerSnapshot(customer),
	})

	return OutcomeChanged, mapper.CustomerToDTO(customer), nil
}

// SoftDelete hides the customer from listings. Only the assigned user may
// delete; the row itself is preserved for audit history and restore.
func (s *CustomerService) SoftDelete(ctx context.Context, actor *auth.UserContext, id int) error {
	customer, err := s.loadActive(ctx, id)
	if err != nil {
		return err
	}

	if customer.AssignedToUserID == nil || *customer.AssignedToUserID != actor.UserID {
		return ErrPermissionDenied
	}

	before := customerSnapshot(customer)
	customer.IsDeleted = true

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionDelete,
		TableName: "Customers",
		RecordID:  strconv.Itoa(customer.ID),
		OldValue:  before,
	})

	return nil
}

// Reassign moves the customer to another member of the acting manager's
// team. Deal ownership follows automatically since deals resolve their
// owner through the customer assignment.
func (s *CustomerService) Reassign(ctx context.Context, actor *auth.UserContext, id int, targetUserID int) (*domain.CustomerDTO, error) {
	if !actor.IsManager() {
		return nil, ErrPermissionDenied
	}

	customer, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if customer.AssignedToUserID != nil {
		inTeam, err := s.userRepo.IsTeamMember(ctx, actor.UserID, *customer.AssignedToUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify team membership: %w", err)
		}
		if !inTeam {
			return nil, ErrPermissionDenied
		}
	}

	inTeam, err := s.userRepo.IsTeamMember(ctx, actor.UserID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify team membership: %w", err)
	}
	if !inTeam {
		return nil, fmt.Errorf("%w: target user is not in your team", ErrPermissionDenied)
	}

	if customer.AssignedToUserID != nil && *customer.AssignedToUserID == targetUserID {
		return mapper.CustomerToDTO(customer), nil
	}

	before := customerSnapshot(customer)
	customer.AssignedToUserID = &targetUserID
	customer.AssignedTo = nil

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to reassign customer: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Customers",
		RecordID:  strconv.Itoa(customer.ID),
		OldValue:  before,
		NewValue:  customerSnapshot(customer),
	})

	return s.Get(ctx, actor, customer.ID)
}

// ToggleVIP flips the VIP flag. Restricted to a manager over the
// assigned user.
func (s *CustomerService) ToggleVIP(ctx context.Context, actor *auth.UserContext, id int) (*domain.CustomerDTO, error) {
	if !actor.IsManager() {
		return nil, ErrPermissionDenied
	}

	customer, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if customer.AssignedToUserID == nil {
		return nil, ErrPermissionDenied
	}
	inTeam, err := s.userRepo.IsTeamMember(ctx, actor.UserID, *customer.AssignedToUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify team membership: %w", err)
	}
	if !inTeam {
		return nil, ErrPermissionDenied
	}

	before := customerSnapshot(customer)
	customer.IsVIP = !customer.IsVIP

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Customers",
		RecordID:  strconv.Itoa(customer.ID),
		OldValue:  before,
		NewValue:  customerSnapshot(customer),
	})

	return mapper.CustomerToDTO(customer), nil
}

// Get returns a single customer visible to the actor.
func (s *CustomerService) Get(ctx context.Context, actor *auth.UserContext, id int) (*domain.CustomerDTO, error) {
	customer, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed, err := s.canView(ctx, actor, customer)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	return mapper.CustomerToDTO(customer), nil
}

// ListMine returns the customers assigned to the actor.
func (s *CustomerService) ListMine(ctx context.Context, actor *auth.UserContext, search string) ([]*domain.CustomerDTO, error) {
	customers, err := s.customerRepo.ListForUser(ctx, actor.UserID, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return mapper.CustomersToDTOs(customers), nil
}

// ListTeam returns every customer assigned to a member of the acting
// manager's team.
func (s *CustomerService) ListTeam(ctx context.Context, actor *auth.UserContext, search string) ([]*domain.CustomerDTO, error) {
	if !actor.IsManager() {
		return nil, ErrPermissionDenied
	}
	customers, err := s.customerRepo.ListForTeam(ctx, actor.UserID, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list team customers: %w", err)
	}
	return mapper.CustomersToDTOs(customers), nil
}

// ListUnassigned returns customers nobody currently owns.
func (s *CustomerService) ListUnassigned(ctx context.Context, actor *auth.UserContext) ([]*domain.CustomerDTO, error) {
	if !actor.IsManager() {
		return nil, ErrPermissionDenied
	}
	customers, err := s.customerRepo.ListUnassigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unassigned customers: %w", err)
	}
	return mapper.CustomersToDTOs(customers), nil
}

func (s *CustomerService) loadActive(ctx context.Context, id int) (*domain.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer.IsDeleted {
		return nil, ErrNotFound
	}
	return customer, nil
}

// canManage reports whether the actor may mutate the customer: the
// assigned user, a manager over the assigned user, or an admin.
func (s *CustomerService) canManage(ctx context.Context, actor *auth.UserContext, customer *domain.Customer) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if customer.AssignedToUserID == nil {
		return false, nil
	}
	if *customer.AssignedToUserID == actor.UserID {
		return true, nil
	}
	if actor.IsManager() {
		return s.userRepo.IsTeamMember(ctx, actor.UserID, *customer.AssignedToUserID)
	}
	return false, nil
}

func (s *CustomerService) canView(ctx context.Context, actor *auth.UserContext, customer *domain.Customer) (bool, error) {
	if customer.AssignedToUserID == nil {
		return actor.IsManager() || actor.IsAdmin(), nil
	}
	return s.canManage(ctx, actor, customer)
}

// validateContact enforces email shape and contact uniqueness. excludeID
// skips the customer being edited in the duplicate scan.
func (s *CustomerService) validateContact(ctx context.Context, email, phone string, excludeID int) error {
	var messages []string

	if email != "" {
		if !validEmail(email) {
			messages = append(messages, "contact email is not a valid address")
		} else {
			exists, err := s.customerRepo.ExistsByContactEmail(ctx, email, excludeID)
			if err != nil {
				return fmt.Errorf("failed to check contact email: %w", err)
			}
			if exists {
				return fmt.Errorf("%w: another customer already uses this contact email", ErrConflict)
			}
		}
	}

	if phone != "" {
		exists, err := s.customerRepo.ExistsByContactPhone(ctx, phone, excludeID)
		if err != nil {
			return fmt.Errorf("failed to check contact phone: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: another customer already uses this contact phone", ErrConflict)
		}
	}

	if len(messages) > 0 {
		return validationError(messages)
	}
	return nil
}

// nextCustomerCode derives a sequential display code from the current
// row count. Codes are informational, not a uniqueness guarantee.
func (s *CustomerService) nextCustomerCode(ctx context.Context) (string, error) {
	count, err := s.customerRepo.CountAll(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CUST%04d", count+1), nil
}
