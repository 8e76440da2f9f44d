package service_test

import (
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/service"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

// seedContract creates an employee-owned deal with a pending contract
func seedContract(t *testing.T, db *gorm.DB, svc *testutil.Services, owner *domain.User) *domain.ContractDTO {
	t.Helper()
	customer := testutil.CreateCustomer(t, db, &owner.ID)
	deal, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(owner), &domain.CreateDealRequest{
		Title:      "Contract fixture deal",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(50000),
	})
	require.NoError(t, err)

	contract, err := svc.Contract.Create(testutil.Ctx(), testutil.Actor(owner), &domain.CreateContractRequest{
		Title:  "Frame agreement",
		DealID: deal.ID,
	})
	require.NoError(t, err)
	return contract
}

func TestContractService_Create_StartsDoublyPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)

	contract := seedContract(t, db, svc, owner)
	assert.Equal(t, domain.ApprovalStatusPending, contract.ApprovalStatus)
	assert.Equal(t, domain.PaymentStatusPending, contract.PaymentStatus)
}

func TestContractService_Create_RequiresDealOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	stranger := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, db, &owner.ID)

	deal, err := svc.Deal.Create(testutil.Ctx(), testutil.Actor(owner), &domain.CreateDealRequest{
		Title:      "Owned deal",
		CustomerID: customer.ID,
		Value:      decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = svc.Contract.Create(testutil.Ctx(), testutil.Actor(stranger), &domain.CreateContractRequest{
		Title:  "Not yours",
		DealID: deal.ID,
	})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestContractService_ApproveAndReject_RestampFromAnyState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	otherManager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	contract := seedContract(t, db, svc, owner)

	approved, err := svc.Contract.Approve(testutil.Ctx(), testutil.Actor(manager), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, approved.ApprovalStatus)
	require.NotNil(t, approved.ApprovedByUserID)
	assert.Equal(t, manager.ID, *approved.ApprovedByUserID)
	require.NotNil(t, approved.ApprovedAt)

	// An approved contract can still be rejected; the decision simply
	// flips and carries the new decider's stamp
	rejected, err := svc.Contract.Reject(testutil.Ctx(), testutil.Actor(otherManager), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusRejected, rejected.ApprovalStatus)
	require.NotNil(t, rejected.ApprovedByUserID)
	assert.Equal(t, otherManager.ID, *rejected.ApprovedByUserID)
}

func TestContractService_Approve_EmployeeDenied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	contract := seedContract(t, db, svc, owner)

	_, err := svc.Contract.Approve(testutil.Ctx(), testutil.Actor(owner), contract.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestContractService_MarkPaid_RequiresApproval(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	contract := seedContract(t, db, svc, owner)

	_, _, err := svc.Contract.MarkPaid(testutil.Ctx(), testutil.Actor(owner), contract.ID, &domain.MarkPaidRequest{
		Method: string(domain.PaymentMethodBankTransfer),
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestContractService_MarkPaid_BankTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	contract := seedContract(t, db, svc, owner)

	_, err := svc.Contract.Approve(testutil.Ctx(), testutil.Actor(manager), contract.ID)
	require.NoError(t, err)

	outcome, paid, err := svc.Contract.MarkPaid(testutil.Ctx(), testutil.Actor(owner), contract.ID, &domain.MarkPaidRequest{
		Method: string(domain.PaymentMethodBankTransfer),
	})
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeChanged, outcome)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaymentAt)

	// Paying again is reported as unchanged, not as an error
	outcome, again, err := svc.Contract.MarkPaid(testutil.Ctx(), testutil.Actor(owner), contract.ID, &domain.MarkPaidRequest{
		Method: string(domain.PaymentMethodBankTransfer),
	})
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeUnchanged, outcome)
	assert.Equal(t, domain.PaymentStatusPaid, again.PaymentStatus)
}

func TestContractService_MarkPaid_CashRequiresAdminReauth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	admin := testutil.CreateUser(t, db, domain.RoleAdmin, nil)
	contract := seedContract(t, db, svc, owner)

	_, err := svc.Contract.Approve(testutil.Ctx(), testutil.Actor(manager), contract.ID)
	require.NoError(t, err)

	// Missing credentials
	_, _, err = svc.Contract.MarkPaid(testutil.Ctx(), testutil.Actor(owner), contract.ID, &domain.MarkPaidRequest{
		Method: "cash",
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	// Wrong password
	_, _, err = svc.Contract.MarkPaid(testutil.Ctx(), testutil.Actor(owner), contract.ID, &domain.MarkPaidRequest{
		Method:        "Cash",
		AdminUserCode: admin.UserCode,
		AdminPassword: "wrong",
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	// A manager's credentials do not satisfy the admin check
	_, _, err = svc.Contract.MarkPaid(testutil.Ctx(), testutil.Actor(owner), contract.ID, &domain.MarkPaidRequest{
		Method:        "Cash",
		AdminUserCode: manager.UserCode,
		AdminPassword: testutil.Password,
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	outcome, paid, err := svc.Contract.MarkPaid(testutil.Ctx(), testutil.Actor(owner), contract.ID, &domain.MarkPaidRequest{
		Method:        "Cash",
		AdminUserCode: admin.UserCode,
		AdminPassword: testutil.Password,
	})
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeChanged, outcome)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)

	// The payment entry is attributed to the countersigning admin
	entries, err := svc.Audit.GetByRecord(testutil.Ctx(), "Contracts", strconv.Itoa(contract.ID), 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, admin.ID, *entries[0].UserID)
}

func TestContractService_EditOnlyWhilePending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	contract := seedContract(t, db, svc, owner)

	title := "Amended agreement"
	outcome, updated, err := svc.Contract.Update(testutil.Ctx(), testutil.Actor(owner), contract.ID, &domain.UpdateContractRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeChanged, outcome)
	assert.Equal(t, title, updated.Title)

	_, err = svc.Contract.Approve(testutil.Ctx(), testutil.Actor(manager), contract.ID)
	require.NoError(t, err)

	title = "Too late"
	_, _, err = svc.Contract.Update(testutil.Ctx(), testutil.Actor(owner), contract.ID, &domain.UpdateContractRequest{Title: &title})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	assert.ErrorIs(t, svc.Contract.SoftDelete(testutil.Ctx(), testutil.Actor(owner), contract.ID), service.ErrPermissionDenied)
}

func TestContractService_AttachAndDownloadDocument(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	contract := seedContract(t, db, svc, owner)

	content := "signed scan bytes"
	dto, err := svc.Contract.AttachDocument(testutil.Ctx(), testutil.Actor(owner), contract.ID,
		"agreement.pdf", "application/pdf", strings.NewReader(content))
	require.NoError(t, err)
	assert.NotEmpty(t, dto.FilePath)

	reader, _, err := svc.Contract.DownloadDocument(testutil.Ctx(), testutil.Actor(owner), contract.ID)
	require.NoError(t, err)
	defer reader.Close()

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestContractService_ListPending_ManagerView(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewServices(t, db)
	owner := testutil.CreateUser(t, db, domain.RoleEmployee, nil)
	manager := testutil.CreateUser(t, db, domain.RoleManager, nil)
	contract := seedContract(t, db, svc, owner)

	pending, err := svc.Contract.ListPending(testutil.Ctx(), testutil.Actor(manager))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, contract.ID, pending[0].ID)

	_, err = svc.Contract.Approve(testutil.Ctx(), testutil.Actor(manager), contract.ID)
	require.NoError(t, err)

	pending, err = svc.Contract.ListPending(testutil.Ctx(), testutil.Actor(manager))
	require.NoError(t, err)
	assert.Empty(t, pending)
}
