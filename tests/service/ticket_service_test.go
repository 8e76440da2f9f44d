package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/service"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

func TestTicketService_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &employee.ID)

	dto, err := svc.Ticket.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateTicketRequest{
		Subject:    "Invoice mismatch",
		Body:       "Customer reports a wrong line item",
		CustomerID: customer.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, dto.ID)
	assert.Equal(t, domain.TicketStatusOpen, dto.Status)
	assert.Equal(t, employee.ID, dto.CreatedByUserID)
}

func TestTicketService_Create_UnknownCustomer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)

	_, err := svc.Ticket.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateTicketRequest{
		Subject:    "Orphan ticket",
		CustomerID: 99999,
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTicketService_Close(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	other := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	customer := testutil.CreateCustomer(t, db, &employee.ID)

	dto, err := svc.Ticket.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateTicketRequest{
		Subject:    "Slow delivery",
		CustomerID: customer.ID,
	})
	require.NoError(t, err)

	// Only the creator or a manager/admin may close
	_, _, err = svc.Ticket.Close(testutil.Ctx(), testutil.Actor(other), dto.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	outcome, closed, err := svc.Ticket.Close(testutil.Ctx(), testutil.Actor(manager), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeChanged, outcome)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// Closing again reports unchanged
	outcome, _, err = svc.Ticket.Close(testutil.Ctx(), testutil.Actor(employee), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeUnchanged, outcome)
}

func TestTicketService_ListByCustomer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	employee := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &employee.ID)
	otherCustomer := testutil.CreateCustomer(t, db, &employee.ID)

	for _, c := range []int{customer.ID, customer.ID, otherCustomer.ID} {
		_, err := svc.Ticket.Create(testutil.Ctx(), testutil.Actor(employee), &domain.CreateTicketRequest{
			Subject:    "Ticket",
			CustomerID: c,
		})
		require.NoError(t, err)
	}

	list, err := svc.Ticket.ListByCustomer(testutil.Ctx(), testutil.Actor(employee), customer.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestTicketService_ListByCustomer_ScopedToAssignee(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	stranger := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	customer := testutil.CreateCustomer(t, db, &owner.ID)

	_, err := svc.Ticket.Create(testutil.Ctx(), testutil.Actor(owner), &domain.CreateTicketRequest{
		Subject:    "Billing question",
		CustomerID: customer.ID,
	})
	require.NoError(t, err)

	_, err = svc.Ticket.ListByCustomer(testutil.Ctx(), testutil.Actor(stranger), customer.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	list, err := svc.Ticket.ListByCustomer(testutil.Ctx(), testutil.Actor(manager), customer.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
