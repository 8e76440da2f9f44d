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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService is the admin-facing account management surface. Admin
// accounts themselves are off limits to lock, delete, and role changes,
// and no flow here can mint a new admin.
type UserService struct {
	userRepo   *repository.UserRepository
	audit      *AuditLogService
	bcryptCost int
	logger     *zap.Logger
}

func NewUserService(
	userRepo *repository.UserRepository,
	audit *AuditLogService,
	bcryptCost int,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		audit:      audit,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Create provisions an employee or manager account. Admin accounts are
// seeded at install time, never created through the API.
func (s *UserService) Create(ctx context.Context, actor *auth.UserContext, req *domain.CreateUserRequest) (*domain.UserDTO, error) {
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRole, req.Role)
	}
	if role == domain.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be created through this API", ErrInvalidRole)
	}

	if err := s.validateManagerAssignment(ctx, role, req.ManagerID); err != nil {
		return nil, err
	}

	if taken, err := s.userRepo.ExistsByUsername(ctx, req.Username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if taken {
		return nil, fmt.Errorf("%w: username is already taken", ErrConflict)
	}
	if taken, err := s.userRepo.ExistsByUserCode(ctx, req.UserCode); err != nil {
		return nil, fmt.Errorf("failed to check user code: %w", err)
	} else if taken {
		return nil, fmt.Errorf("%w: user code is already taken", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		UserCode:            req.UserCode,
		Username:            req.Username,
		Email:               req.Email,
		PasswordHash:        string(hash),
		FullName:            req.FullName,
		Phone:               req.Phone,
		RoleID:              int(role),
		ManagerID:           req.ManagerID,
		Status:              domain.UserStatusActive,
		ForceChangePassword: true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionCreate,
		TableName: "Users",
		RecordID:  strconv.Itoa(user.ID),
		NewValue:  userSnapshot(user),
	})

	return mapper.UserToDTO(user), nil
}

// Update edits profile fields. Moving an employee under a different
// manager is allowed here; role changes go through ChangeRole.
func (s *UserService) Update(ctx context.Context, actor *auth.UserContext, id int, req *domain.UpdateUserRequest) (Outcome, *domain.UserDTO, error) {
	user, err := s.loadActive(ctx, id)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	before := userSnapshot(user)
	changed := false

	if req.Email != nil && *req.Email != user.Email {
		user.Email = *req.Email
		changed = true
	}
	if req.FullName != nil && *req.FullName != user.FullName {
		user.FullName = *req.FullName
		changed = true
	}
	if req.Phone != nil && *req.Phone != user.Phone {
		user.Phone = *req.Phone
		changed = true
	}
	if req.ManagerID != nil && (user.ManagerID == nil || *user.ManagerID != *req.ManagerID) {
		if err := s.validateManagerAssignment(ctx, domain.RoleOf(user), req.ManagerID); err != nil {
			return OutcomeUnchanged, nil, err
		}
		user.ManagerID = req.ManagerID
		user.Manager = nil
		changed = true
	}

	if !changed {
		return OutcomeUnchanged, mapper.UserToDTO(user), nil
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Users",
		RecordID:  strconv.Itoa(user.ID),
		OldValue:  before,
		NewValue:  userSnapshot(user),
	})

	return OutcomeChanged, mapper.UserToDTO(user), nil
}

// ToggleLock flips the account between active and locked.
func (s *UserService) ToggleLock(ctx context.Context, actor *auth.UserContext, id int) (*domain.UserDTO, error) {
	user, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.RoleOf(user) == domain.RoleAdmin {
		return nil, ErrAdminImmutable
	}

	before := userSnapshot(user)
	if user.Status == domain.UserStatusActive {
		user.Status = domain.UserStatusLocked
	} else {
		user.Status = domain.UserStatusActive
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Users",
		RecordID:  strconv.Itoa(user.ID),
		OldValue:  before,
		NewValue:  userSnapshot(user),
	})

	return mapper.UserToDTO(user), nil
}

// SoftDelete hides the account. The row is kept so audit entries and
// historical assignments still resolve.
func (s *UserService) SoftDelete(ctx context.Context, actor *auth.UserContext, id int) error {
	user, err := s.loadActive(ctx, id)
	if err != nil {
		return err
	}
	if domain.RoleOf(user) == domain.RoleAdmin {
		return ErrAdminImmutable
	}

	before := userSnapshot(user)
	user.IsDeleted = true

	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionDelete,
		TableName: "Users",
		RecordID:  strconv.Itoa(user.ID),
		OldValue:  before,
	})

	return nil
}

// Restore brings a soft-deleted account back.
func (s *UserService) Restore(ctx context.Context, actor *auth.UserContext, id int) (*domain.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsDeleted {
		return mapper.UserToDTO(user), nil
	}

	before := userSnapshot(user)
	user.IsDeleted = false

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to restore user: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionRestore,
		TableName: "Users",
		RecordID:  strconv.Itoa(user.ID),
		OldValue:  before,
		NewValue:  userSnapshot(user),
	})

	return mapper.UserToDTO(user), nil
}

// ChangeRole switches between employee and manager. Promotion to admin
// is never available here, and demoting a manager to employee requires
// naming who they now report to.
func (s *UserService) ChangeRole(ctx context.Context, actor *auth.UserContext, id int, req *domain.ChangeRoleRequest) (*domain.UserDTO, error) {
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRole, req.Role)
	}
	if role == domain.RoleAdmin {
		return nil, fmt.Errorf("%w: promotion to admin is not allowed", ErrInvalidRole)
	}

	user, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.RoleOf(user) == domain.RoleAdmin {
		return nil, ErrAdminImmutable
	}

	managerID := req.ManagerID
	if managerID == nil {
		managerID = user.ManagerID
	}
	if err := s.validateManagerAssignment(ctx, role, managerID); err != nil {
		return nil, err
	}

	before := userSnapshot(user)
	user.RoleID = int(role)
	if role == domain.RoleManager {
		user.ManagerID = nil
	} else {
		user.ManagerID = managerID
	}
	user.Manager = nil

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to change role: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Users",
		RecordID:  strconv.Itoa(user.ID),
		OldValue:  before,
		NewValue:  userSnapshot(user),
	})

	return mapper.UserToDTO(user), nil
}

// ForceChangePassword resets the account to a temporary password the
// user must replace at next login.
func (s *UserService) ForceChangePassword(ctx context.Context, actor *auth.UserContext, id int, temporaryPassword string) error {
	if len(temporaryPassword) < 8 {
		return validationError([]string{"temporary password must be at least 8 characters"})
	}

	user, err := s.loadActive(ctx, id)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(temporaryPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	before := userSnapshot(user)
	user.PasswordHash = string(hash)
	user.ForceChangePassword = true

	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Users",
		RecordID:  strconv.Itoa(user.ID),
		OldValue:  before,
		NewValue:  userSnapshot(user),
	})

	return nil
}

// Get returns one account, including soft-deleted ones so admins can
// inspect before restoring.
func (s *UserService) Get(ctx context.Context, id int) (*domain.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return mapper.UserToDTO(user), nil
}

// List returns accounts, optionally including soft-deleted ones.
func (s *UserService) List(ctx context.Context, includeDeleted bool) ([]*domain.UserDTO, error) {
	users, err := s.userRepo.List(ctx, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return mapper.UsersToDTOs(users), nil
}

// ListTeam returns the members reporting to the given manager.
func (s *UserService) ListTeam(ctx context.Context, managerID int) ([]*domain.UserDTO, error) {
	users, err := s.userRepo.ListTeam(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team: %w", err)
	}
	return mapper.UsersToDTOs(users), nil
}

func (s *UserService) loadActive(ctx context.Context, id int) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsDeleted {
		return nil, ErrNotFound
	}
	return user, nil
}

// validateManagerAssignment enforces that employees always report to an
// active manager and that managers report to nobody.
func (s *UserService) validateManagerAssignment(ctx context.Context, role domain.Role, managerID *int) error {
	if role != domain.RoleEmployee {
		return nil
	}
	if managerID == nil {
		return validationError([]string{"employees must be assigned to a manager"})
	}

	manager, err := s.userRepo.GetByID(ctx, *managerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationError([]string{"assigned manager does not exist"})
		}
		return fmt.Errorf("failed to load manager: %w", err)
	}
	if manager.IsDeleted || domain.RoleOf(manager) != domain.RoleManager {
		return validationError([]string{"assigned manager must be an active manager account"})
	}
	return nil
}
