// Package testutil provides shared fixtures for the test suites. Tests
// run against an in-memory SQLite database so they need no external
// services.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
)

// Password is the plaintext behind every seeded account
const Password = "correct horse battery staple"

var seq int64

// NextID returns a process-unique suffix for codes and usernames
func NextID() int64 {
	return atomic.AddInt64(&seq, 1)
}

// SetupTestDB opens a fresh in-memory SQLite database and migrates the
// full schema. Each call gets its own database, so tests stay isolated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&domain.User{},
		&domain.Customer{},
		&domain.Deal{},
		&domain.Contract{},
		&domain.TaskItem{},
		&domain.SupportTicket{},
		&domain.AuditLog{},
	)
	require.NoError(t, err)

	return db
}

// Logger returns a silent logger for service construction
func Logger() *zap.Logger {
	return zap.NewNop()
}

// HashPassword hashes the shared test password at minimum cost
func HashPassword(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// CreateUser inserts a user with the given role and optional manager
func CreateUser(t *testing.T, db *gorm.DB, role domain.Role, managerID *int) *domain.User {
	t.Helper()
	n := NextID()
	user := &domain.User{
		UserCode:     fmt.Sprintf("U%04d", n),
		Username:     fmt.Sprintf("user%d", n),
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: HashPassword(t),
		FullName:     fmt.Sprintf("Test User %d", n),
		RoleID:       int(role),
		ManagerID:    managerID,
		Status:       domain.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateCustomer inserts a customer assigned to the given user
func CreateCustomer(t *testing.T, db *gorm.DB, assignedTo *int) *domain.Customer {
	t.Helper()
	n := NextID()
	customer := &domain.Customer{
		CustomerCode:     fmt.Sprintf("CUST%04d", n),
		CompanyName:      fmt.Sprintf("Acme %d AS", n),
		ContactEmail:     fmt.Sprintf("contact%d@acme.example", n),
		ContactPhone:     fmt.Sprintf("555-%04d", n),
		AssignedToUserID: assignedTo,
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

// Actor builds the request-scoped identity for a seeded user
func Actor(user *domain.User) *auth.UserContext {
	return &auth.UserContext{
		UserID:   user.ID,
		UserCode: user.UserCode,
		FullName: user.FullName,
		Role:     domain.RoleOf(user),
	}
}

// Ctx returns a context carrying a resolved client IP, matching what
// the HTTP middleware attaches on real requests
func Ctx() context.Context {
	return auth.WithClientIP(context.Background(), "198.51.100.7")
}
