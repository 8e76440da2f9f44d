package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/mapper"
	"github.com/b2bcrm/crm-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	userRepo   *repository.UserRepository
	tokens     *auth.TokenManager
	audit      *AuditLogService
	bcryptCost int
	logger     *zap.Logger
}

func NewAuthService(
	userRepo *repository.UserRepository,
	tokens *auth.TokenManager,
	audit *AuditLogService,
	bcryptCost int,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		audit:      audit,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Login checks the credentials and issues a signed token. Unknown
// users, deleted accounts, and bad passwords all answer with the same
// error; a locked account is reported as locked since the user holds
// valid credentials.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status == domain.UserStatusLocked {
		return nil, ErrAccountLocked
	}

	now := time.Now().UTC()
	token, expiresAt, err := s.tokens.Issue(user, now)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	user.LastLoginAt = &now
	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Warn("failed to record last login", zap.Int("userId", user.ID), zap.Error(err))
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &user.ID,
		Action:    domain.AuditActionLogin,
		TableName: "Users",
		RecordID:  strconv.Itoa(user.ID),
	})

	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		User:      *mapper.UserToDTO(user),
	}, nil
}

// Logout records the sign-out. Tokens are stateless, so this exists for
// the audit trail rather than for session teardown.
func (s *AuthService) Logout(ctx context.Context, actor *auth.UserContext) {
	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionLogout,
		TableName: "Users",
		RecordID:  strconv.Itoa(actor.UserID),
	})
}

// Me returns the authenticated user's own profile.
func (s *AuthService) Me(ctx context.Context, actor *auth.UserContext) (*domain.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return mapper.UserToDTO(user), nil
}

// ChangePassword rotates the actor's own password and clears any
// pending force-change flag.
func (s *AuthService) ChangePassword(ctx context.Context, actor *auth.UserContext, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return validationError([]string{"new password must be at least 8 characters"})
	}

	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	before := userSnapshot(user)
	user.PasswordHash = string(hash)
	user.ForceChangePassword = false

	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
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
