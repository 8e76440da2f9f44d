package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/config"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/repository"
	"github.com/b2bcrm/crm-api/internal/service"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

func newAuthService(t *testing.T, db *gorm.DB) *service.AuthService {
	t.Helper()
	userRepo := repository.NewUserRepository(db)
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), testutil.Logger())
	tokens := auth.NewTokenManager(&config.AuthConfig{
		JWTSecret:       "test-secret-not-for-production",
		TokenTTLMinutes: 60,
	}, "crm-api-test")
	return service.NewAuthService(userRepo, tokens, audit, bcrypt.MinCost, testutil.Logger())
}

func TestAuthService_Login(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAuthService(t, db)
	user := testutil.CreateUser(t, db, domain.RoleEmployee, nil)

	resp, err := svc.Login(testutil.Ctx(), &domain.LoginRequest{
		Username: user.Username,
		Password: testutil.Password,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)

	expires, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	// Successful login stamps the last login time
	var reloaded domain.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.NotNil(t, reloaded.LastLoginAt)
}

func TestAuthService_Login_BadCredentials(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAuthService(t, db)
	user := testutil.CreateUser(t, db, domain.RoleEmployee, nil)

	_, err := svc.Login(testutil.Ctx(), &domain.LoginRequest{Username: "ghost", Password: testutil.Password})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = svc.Login(testutil.Ctx(), &domain.LoginRequest{Username: user.Username, Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_Login_LockedAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAuthService(t, db)
	user := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	require.NoError(t, db.Model(user).Update("status", domain.UserStatusLocked).Error)

	_, err := svc.Login(testutil.Ctx(), &domain.LoginRequest{
		Username: user.Username,
		Password: testutil.Password,
	})
	assert.ErrorIs(t, err, service.ErrAccountLocked)

	// The password is checked before the lock, so a wrong password on a
	// locked account does not disclose that the account exists and is locked
	_, err = svc.Login(testutil.Ctx(), &domain.LoginRequest{
		Username: user.Username,
		Password: "wrong",
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_Login_DeletedAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAuthService(t, db)
	user := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	require.NoError(t, db.Model(user).Update("is_deleted", true).Error)

	_, err := svc.Login(testutil.Ctx(), &domain.LoginRequest{
		Username: user.Username,
		Password: testutil.Password,
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_ChangePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAuthService(t, db)
	user := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	require.NoError(t, db.Model(user).Update("force_change_password", true).Error)
	actor := testutil.Actor(user)

	err := svc.ChangePassword(testutil.Ctx(), actor, "wrong", "brand-new-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	err = svc.ChangePassword(testutil.Ctx(), actor, testutil.Password, "short")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	require.NoError(t, svc.ChangePassword(testutil.Ctx(), actor, testutil.Password, "brand-new-password"))

	// Rotation clears the pending force-change flag
	var reloaded domain.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.False(t, reloaded.ForceChangePassword)

	_, err = svc.Login(testutil.Ctx(), &domain.LoginRequest{
		Username: user.Username,
		Password: "brand-new-password",
	})
	require.NoError(t, err)
}
