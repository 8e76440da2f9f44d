package service_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/service"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

func newUserRequest(role string, managerID *int) *domain.CreateUserRequest {
	n := testutil.NextID()
	return &domain.CreateUserRequest{
		UserCode:  fmt.Sprintf("N%04d", n),
		Username:  fmt.Sprintf("newuser%d", n),
		Email:     fmt.Sprintf("newuser%d@example.com", n),
		Password:  "initial-password",
		FullName:  "New Hire",
		Role:      role,
		ManagerID: managerID,
	}
}

func TestUserService_Create_EmployeeNeedsManager(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)

	_, err := svc.User.Create(testutil.Ctx(), testutil.Actor(admin), newUserRequest("Employee", nil))
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	dto, err := svc.User.Create(testutil.Ctx(), testutil.Actor(admin), newUserRequest("Employee", &manager.ID))
	require.NoError(t, err)
	assert.Equal(t, "Employee", dto.Role)
	assert.True(t, dto.ForceChangePassword)
}

func TestUserService_Create_ManagerMustHoldManagerRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)

	_, err := svc.User.Create(testutil.Ctx(), testutil.Actor(admin), newUserRequest("Employee", &employee.ID))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestUserService_Create_NoAdminViaAPI(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)

	_, err := svc.User.Create(testutil.Ctx(), testutil.Actor(admin), newUserRequest("Admin", nil))
	assert.ErrorIs(t, err, service.ErrInvalidRole)
}

func TestUserService_Create_RejectsTakenIdentifiers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	existing := testutil.CreateUser(t, db, domain.RoleManager, nil)

	req := newUserRequest("Manager", nil)
	req.Username = existing.Username
	_, err := svc.User.Create(testutil.Ctx(), testutil.Actor(admin), req)
	assert.ErrorIs(t, err, service.ErrConflict)

	req = newUserRequest("Manager", nil)
	req.UserCode = existing.UserCode
	_, err = svc.User.Create(testutil.Ctx(), testutil.Actor(admin), req)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestUserService_ToggleLock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)

	dto, err := svc.User.ToggleLock(testutil.Ctx(), testutil.Actor(admin), employee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusLocked, dto.Status)

	dto, err = svc.User.ToggleLock(testutil.Ctx(), testutil.Actor(admin), employee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, dto.Status)
}

func TestUserService_AdminAccountsImmutable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	otherAdmin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	actor := testutil.Actor(admin)

	_, err := svc.User.ToggleLock(testutil.Ctx(), actor, otherAdmin.ID)
	assert.ErrorIs(t, err, service.ErrAdminImmutable)

	assert.ErrorIs(t, svc.User.SoftDelete(testutil.Ctx(), actor, otherAdmin.ID), service.ErrAdminImmutable)

	_, err = svc.User.ChangeRole(testutil.Ctx(), actor, otherAdmin.ID, &domain.ChangeRoleRequest{Role: "Employee"})
	assert.ErrorIs(t, err, service.ErrAdminImmutable)
}

func TestUserService_ChangeRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, &manager.ID)

	// Promotion to admin is never available through the API
	_, err := svc.User.ChangeRole(testutil.Ctx(), testutil.Actor(admin), employee.ID, &domain.ChangeRoleRequest{Role: "Admin"})
	assert.ErrorIs(t, err, service.ErrInvalidRole)

	// Becoming a manager drops the manager link
	dto, err := svc.User.ChangeRole(testutil.Ctx(), testutil.Actor(admin), employee.ID, &domain.ChangeRoleRequest{Role: "Manager"})
	require.NoError(t, err)
	assert.Equal(t, "Manager", dto.Role)
	assert.Nil(t, dto.ManagerID)
}

func TestUserService_SoftDeleteAndRestore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	actor := testutil.Actor(admin)

	require.NoError(t, svc.User.SoftDelete(testutil.Ctx(), actor, employee.ID))

	// Deleted accounts stay visible to admin reads
	dto, err := svc.User.Get(testutil.Ctx(), employee.ID)
	require.NoError(t, err)
	assert.True(t, dto.IsDeleted)

	dto, err = svc.User.Restore(testutil.Ctx(), actor, employee.ID)
	require.NoError(t, err)
	assert.False(t, dto.IsDeleted)

	// Restoring an active account is a quiet no-op
	dto, err = svc.User.Restore(testutil.Ctx(), actor, employee.ID)
	require.NoError(t, err)
	assert.False(t, dto.IsDeleted)
}

func TestUserService_ForceChangePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)

	err := svc.User.ForceChangePassword(testutil.Ctx(), testutil.Actor(admin), employee.ID, "short")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	require.NoError(t, svc.User.ForceChangePassword(testutil.Ctx(), testutil.Actor(admin), employee.ID, "temporary-pass-1"))

	dto, err := svc.User.Get(testutil.Ctx(), employee.ID)
	require.NoError(t, err)
	assert.True(t, dto.ForceChangePassword)
}

func TestUserService_ListTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	testutil.CreateUser(t, db, domain.RoleEmployee, &manager.ID)
	testutil.CreateUser(t, db, domain.RoleEmployee, &manager.ID)
	testutil.CreateUser(t, db, domain.RoleEmployee, nil)

	team, err := svc.User.ListTeam(testutil.Ctx(), manager.ID)
	require.NoError(t, err)
	assert.Len(t, team, 2)
}
