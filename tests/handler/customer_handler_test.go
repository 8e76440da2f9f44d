package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/http/handler"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

func newCustomerHandler(t *testing.T) (*handler.CustomerHandler, *testutil.Services, *gormFixture) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svcs := testutil.NewServices(t, db)
	h := handler.NewCustomerHandler(svcs.Customer, svcs.Ticket, testutil.Logger())
	return h, svcs, &gormFixture{db: db}
}

func TestCustomerHandler_Create_Success(t *testing.T) {
	h, _, fx := newCustomerHandler(t)
	employee := testutil.CreateUser(t, fx.db, domain.RoleEmployee, nil)

	body, _ := json.Marshal(domain.CreateCustomerRequest{
		CompanyName:  "Nordic Freight AS",
		Industry:     "Logistics",
		ContactName:  "Kari Holm",
		ContactEmail: "kari@nordicfreight.example",
	})

	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
	req = req.WithContext(auth.WithUserContext(testutil.Ctx(), testutil.Actor(employee)))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp domain.CustomerDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Nordic Freight AS", resp.CompanyName)
	assert.Regexp(t, `^CUST\d+$`, resp.CustomerCode)
	require.NotNil(t, resp.AssignedToUserID)
	assert.Equal(t, employee.ID, *resp.AssignedToUserID)
}

func TestCustomerHandler_Create_ValidationError(t *testing.T) {
	h, _, fx := newCustomerHandler(t)
	employee := testutil.CreateUser(t, fx.db, domain.RoleEmployee, nil)

	// missing companyName, malformed contactEmail
	body := []byte(`{"contactEmail":"not-an-email"}`)

	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
	req = req.WithContext(auth.WithUserContext(testutil.Ctx(), testutil.Actor(employee)))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
	assert.Contains(t, apiErr.Errors, "companyName")
	assert.Contains(t, apiErr.Errors, "contactEmail")
}

func TestCustomerHandler_Create_DuplicateContactConflict(t *testing.T) {
	h, svcs, fx := newCustomerHandler(t)
	employee := testutil.CreateUser(t, fx.db, domain.RoleEmployee, nil)

	_, err := svcs.Customer.Create(
		auth.WithUserContext(testutil.Ctx(), testutil.Actor(employee)),
		testutil.Actor(employee),
		&domain.CreateCustomerRequest{CompanyName: "First AS", ContactEmail: "shared@example.com"},
	)
	require.NoError(t, err)

	body, _ := json.Marshal(domain.CreateCustomerRequest{
		CompanyName:  "Second AS",
		ContactEmail: "shared@example.com",
	})
	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
	req = req.WithContext(auth.WithUserContext(testutil.Ctx(), testutil.Actor(employee)))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeConflict, apiErr.Type)
}

func TestCustomerHandler_Get_NotFound(t *testing.T) {
	h, _, fx := newCustomerHandler(t)
	employee := testutil.CreateUser(t, fx.db, domain.RoleEmployee, nil)

	req := httptest.NewRequest(http.MethodGet, "/customers/999999", nil)
	req = withURLParam(req, "id", "999999")
	req = req.WithContext(auth.WithUserContext(req.Context(), testutil.Actor(employee)))
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomerHandler_Get_InvalidID(t *testing.T) {
	h, _, fx := newCustomerHandler(t)
	employee := testutil.CreateUser(t, fx.db, domain.RoleEmployee, nil)

	req := httptest.NewRequest(http.MethodGet, "/customers/abc", nil)
	req = withURLParam(req, "id", "abc")
	req = req.WithContext(auth.WithUserContext(req.Context(), testutil.Actor(employee)))
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerHandler_Update_ForeignCustomerForbidden(t *testing.T) {
	h, _, fx := newCustomerHandler(t)
	owner := testutil.CreateUser(t, fx.db, domain.RoleEmployee, nil)
	stranger := testutil.CreateUser(t, fx.db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, fx.db, &owner.ID)

	notes := "taking over"
	body, _ := json.Marshal(domain.UpdateCustomerRequest{Notes: &notes})

	req := httptest.NewRequest(http.MethodPut, "/customers/"+strconv.Itoa(customer.ID), bytes.NewReader(body))
	req = withURLParam(req, "id", strconv.Itoa(customer.ID))
	req = req.WithContext(auth.WithUserContext(req.Context(), testutil.Actor(stranger)))
	w := httptest.NewRecorder()

	h.Update(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCustomerHandler_Update_NoChangesIsNoContent(t *testing.T) {
	h, _, fx := newCustomerHandler(t)
	owner := testutil.CreateUser(t, fx.db, domain.RoleEmployee, nil)
	customer := testutil.CreateCustomer(t, fx.db, &owner.ID)

	same := customer.CompanyName
	body, _ := json.Marshal(domain.UpdateCustomerRequest{CompanyName: &same})

	req := httptest.NewRequest(http.MethodPut, "/customers/"+strconv.Itoa(customer.ID), bytes.NewReader(body))
	req = withURLParam(req, "id", strconv.Itoa(customer.ID))
	req = req.WithContext(auth.WithUserContext(req.Context(), testutil.Actor(owner)))
	w := httptest.NewRecorder()

	h.Update(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestCustomerHandler_ListUnassigned_EmployeeForbidden(t *testing.T) {
	h, _, fx := newCustomerHandler(t)
	employee := testutil.CreateUser(t, fx.db, domain.RoleEmployee, nil)
	testutil.CreateCustomer(t, fx.db, nil)

	req := httptest.NewRequest(http.MethodGet, "/customers/unassigned", nil)
	req = req.WithContext(auth.WithUserContext(testutil.Ctx(), testutil.Actor(employee)))
	w := httptest.NewRecorder()

	h.ListUnassigned(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// withURLParam attaches a chi route parameter the way the router would
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(chiRouteContext(req.Context(), rctx))
}
