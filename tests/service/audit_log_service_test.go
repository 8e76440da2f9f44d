package service_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/repository"
	"github.com/b2bcrm/crm-api/internal/service"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

func TestAuditLogService_Log_StampsIPFromContext(t *testing.T) {
	db := testutil.SetupTestDB(t)
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), testutil.Logger())
	userID := 1

	audit.Log(testutil.Ctx(), service.LogEntry{
		UserID:    &userID,
		Action:    domain.AuditActionCreate,
		TableName: "Customers",
		RecordID:  "1",
	})

	entries, err := audit.GetByRecord(testutil.Ctx(), "Customers", "1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "198.51.100.7", entries[0].IPAddress)
}

func TestAuditLogService_Log_UnknownIPWithoutRequestMetadata(t *testing.T) {
	db := testutil.SetupTestDB(t)
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), testutil.Logger())

	// A bare context means a non-HTTP caller, not a missing header
	audit.Log(context.Background(), service.LogEntry{
		Action:    domain.AuditActionError,
		TableName: "Deals",
		RecordID:  "N/A",
	})

	entries, err := audit.GetByRecord(context.Background(), "Deals", "N/A", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Unknown", entries[0].IPAddress)
	assert.Nil(t, entries[0].UserID)
}

func TestAuditLogService_Log_SerializesSnapshots(t *testing.T) {
	db := testutil.SetupTestDB(t)
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), testutil.Logger())
	userID := 7

	audit.Log(testutil.Ctx(), service.LogEntry{
		UserID:    &userID,
		Action:    domain.AuditActionUpdate,
		TableName: "Contracts",
		RecordID:  "42",
		OldValue:  map[string]interface{}{"title": "Old", "approvedAt": nil},
		NewValue:  map[string]interface{}{"title": "New"},
	})

	entries, err := audit.GetByRecord(testutil.Ctx(), "Contracts", "42", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NotNil(t, entries[0].OldValue)
	assert.JSONEq(t, `{"title":"Old"}`, *entries[0].OldValue)
	require.NotNil(t, entries[0].NewValue)
	assert.JSONEq(t, `{"title":"New"}`, *entries[0].NewValue)
}

func TestAuditLogService_OneRowPerMutation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	actor := testutil.Actor(employee)

	customer, err := svc.Customer.Create(testutil.Ctx(), actor, &domain.CreateCustomerRequest{
		CompanyName: "Sporbar AS",
	})
	require.NoError(t, err)

	notes := "first call done"
	_, _, err = svc.Customer.Update(testutil.Ctx(), actor, customer.ID, &domain.UpdateCustomerRequest{Notes: &notes})
	require.NoError(t, err)

	require.NoError(t, svc.Customer.SoftDelete(testutil.Ctx(), actor, customer.ID))

	entries, err := svc.Audit.GetByRecord(testutil.Ctx(), "Customers", strconv.Itoa(customer.ID), 50)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	actions := map[domain.AuditAction]bool{}
	for _, e := range entries {
		actions[e.Action] = true
	}
	assert.True(t, actions[domain.AuditActionCreate])
	assert.True(t, actions[domain.AuditActionUpdate])
	assert.True(t, actions[domain.AuditActionDelete])
}

func TestAuditLogService_List_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), testutil.Logger())
	alice, bob := 1, 2

	audit.Log(testutil.Ctx(), service.LogEntry{UserID: &alice, Action: domain.AuditActionCreate, TableName: "Deals", RecordID: "1"})
	audit.Log(testutil.Ctx(), service.LogEntry{UserID: &alice, Action: domain.AuditActionUpdate, TableName: "Deals", RecordID: "1"})
	audit.Log(testutil.Ctx(), service.LogEntry{UserID: &bob, Action: domain.AuditActionCreate, TableName: "Tasks", RecordID: "9"})

	logs, total, err := audit.List(testutil.Ctx(), &domain.AuditLogFilter{TableName: "Deals"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, logs, 2)

	logs, total, err = audit.List(testutil.Ctx(), &domain.AuditLogFilter{UserID: &bob})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, "Tasks", logs[0].TableName)

	logs, total, err = audit.List(testutil.Ctx(), &domain.AuditLogFilter{Action: string(domain.AuditActionCreate), Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, logs, 1)
}
