package service_test

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/service"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

func TestDealService_Create_DefaultsToLeadStage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &employee.ID)

	dto, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateDealRequest{
		Title:      "Steel frame delivery",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(120000),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DealStageLead, dto.Stage)
	require.NotNil(t, dto.OwnerUserID)
	assert.Equal(t, employee.ID, *dto.OwnerUserID)
}

func TestDealService_Create_RejectsNonPositiveValue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &employee.ID)

	for _, value := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-50)} {
		_, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateDealRequest{
			Title:      "Bad value",
			CustomerID: customer.ID,
			Value:      value,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	}
}

func TestDealService_Create_ClaimsUnassignedCustomer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, nil)

	dto, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateDealRequest{
		Title:      "First contact",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(5000),
	})
	require.NoError(t, err)
	require.NotNil(t, dto.OwnerUserID)
	assert.Equal(t, employee.ID, *dto.OwnerUserID)

	var reloaded domain.Customer
	require.NoError(t, db.First(&reloaded, customer.ID).Error)
	require.NotNil(t, reloaded.AssignedToUserID)
	assert.Equal(t, employee.ID, *reloaded.AssignedToUserID)
}

func TestDealService_Create_DeniedForForeignCustomer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	stranger := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &owner.ID)

	_, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(stranger), &domain.CreateDealRequest{
		Title:      "Poaching attempt",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestDealService_DeniedEditLeavesNoAuditTrail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	stranger := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &owner.ID)

	dto, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(owner), &domain.CreateDealRequest{
		Title:      "Warehouse extension",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(40000),
	})
	require.NoError(t, err)

	title := "Hijacked"
	_, _, err = svc.Deal.Update(testutil.Ctx(), testutil.Actor(stranger), dto.ID, &domain.UpdateDealRequest{Title: &title})
	require.ErrorIs(t, err, service.ErrPermissionDenied)

	// The rejected edit must leave no trace: only the create row exists
	entries, err := svc.Audit.GetByRecord(testutil.Ctx(), "Deals", strconv.Itoa(dto.ID), 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionCreate, entries[0].Action)
}

func TestDealService_ListByCustomer_ScopedToAssignee(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	stranger := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	customer := testutil.CreateCustomer(t, db, &owner.ID)

	_, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(owner), &domain.CreateDealRequest{
		Title:      "Fleet contract",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(12000),
	})
	require.NoError(t, err)

	_, err = svc.Deal.ListByCustomer(testutil.Ctx(), testutil.Actor(stranger), customer.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	list, err := svc.Deal.ListByCustomer(testutil.Ctx(), testutil.Actor(owner), customer.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.Deal.ListByCustomer(testutil.Ctx(), testutil.Actor(manager), customer.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Deal.ListByCustomer(testutil.Ctx(), testutil.Actor(owner), 999999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDealService_OwnershipFollowsCustomerReassignment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	alice := testutil.CreateUser(t, db, domain.RoleEmployee, &manager.ID)
	bob := testutil.CreateUser(t, db, domain.RoleEmployee, &manager.ID)
	customer := testutil.CreateCustomer(t, db, &alice.ID)

	dto, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(alice), &domain.CreateDealRequest{
		Title:      "Roof renovation",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(80000),
	})
	require.NoError(t, err)

	_, err = svc.Customer.Reassign(testutil.Ctx(), testutil.Actor(manager), customer.ID, bob.ID)
	require.NoError(t, err)

	// The previous owner lost edit rights the moment the customer moved
	title := "Renamed"
	_, _, err = svc.Deal.Update(testutil.Ctx(), testutil.Actor(alice), dto.ID, &domain.UpdateDealRequest{Title: &title})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	outcome, updated, err := svc.Deal.Update(testutil.Ctx(), testutil.Actor(bob), dto.ID, &domain.UpdateDealRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeChanged, outcome)
	assert.Equal(t, title, updated.Title)
}

func TestDealService_UpdateStage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &employee.ID)

	dto, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateDealRequest{
		Title:      "Pipeline walk",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	// Stages are free text, any non-empty label is accepted
	outcome, updated, err := svc.Deal.UpdateStage(testutil.Ctx(), testutil.Actor(employee), dto.ID, "Technical Review")
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeChanged, outcome)
	assert.Equal(t, "Technical Review", updated.Stage)

	outcome, _, err = svc.Deal.UpdateStage(testutil.Ctx(), testutil.Actor(employee), dto.ID, "Technical Review")
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeUnchanged, outcome)

	_, _, err = svc.Deal.UpdateStage(testutil.Ctx(), testutil.Actor(employee), dto.ID, "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestDealService_Create_WritesAuditRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &employee.ID)

	dto, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateDealRequest{
		Title:      "Audited deal",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(999),
	})
	require.NoError(t, err)

	entries, err := svc.Audit.GetByRecord(testutil.Ctx(), "Deals", strconv.Itoa(dto.ID), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionCreate, entries[0].Action)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, employee.ID, *entries[0].UserID)
	assert.Equal(t, "198.51.100.7", entries[0].IPAddress)
}

func TestDealService_PipelineSummary_ManagerOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, &manager.ID)
	customer := testutil.CreateCustomer(t, db, &employee.ID)

	_, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateDealRequest{
		Title:      "Summary fodder",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	_, err = svc.Deal.PipelineSummary(testutil.Ctx(), testutil.Actor(employee))
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	summary, err := svc.Deal.PipelineSummary(testutil.Ctx(), testutil.Actor(manager))
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
}

func TestDealService_SoftDelete_OwnerOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	stranger := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &employee.ID)

	dto, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateDealRequest{
		Title:      "Short lived",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Deal.SoftDelete(testutil.Ctx(), testutil.Actor(stranger), dto.ID), service.ErrPermissionDenied)
	require.NoError(t, svc.Deal.SoftDelete(testutil.Ctx(), testutil.Actor(employee), dto.ID))

	_, err = svc.Deal.Get(testutil.Ctx(), testutil.Actor(employee), dto.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
