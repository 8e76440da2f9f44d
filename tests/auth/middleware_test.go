package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	tm := newTokenManager(30)
	mw := auth.NewMiddleware(tm, testutil.Logger())

	token, _, err := tm.Issue(testUser(), time.Now().UTC())
	require.NoError(t, err)

	var captured *auth.UserContext
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = auth.MustFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, captured)
	assert.Equal(t, 42, captured.UserID)
	assert.Equal(t, domain.RoleManager, captured.Role)
}

func TestAuthenticate_MissingOrMalformedHeader(t *testing.T) {
	mw := auth.NewMiddleware(newTokenManager(30), testutil.Logger())
	called := false
	handler := mw.Authenticate(okHandler(&called))

	for _, header := range []string{"", "Basic dXNlcg==", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
	assert.False(t, called)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	tm := newTokenManager(1)
	mw := auth.NewMiddleware(tm, testutil.Logger())

	token, _, err := tm.Issue(testUser(), time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	called := false
	handler := mw.Authenticate(okHandler(&called))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireRole(t *testing.T) {
	mw := auth.NewMiddleware(newTokenManager(30), testutil.Logger())

	serve := func(role domain.Role, guard func(http.Handler) http.Handler) int {
		called := false
		handler := guard(okHandler(&called))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithUserContext(req.Context(), &auth.UserContext{UserID: 1, Role: role}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	managerOrAdmin := mw.RequireRole(domain.RoleManager, domain.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, serve(domain.RoleEmployee, managerOrAdmin))
	assert.Equal(t, http.StatusOK, serve(domain.RoleManager, managerOrAdmin))
	assert.Equal(t, http.StatusOK, serve(domain.RoleAdmin, managerOrAdmin))

	assert.Equal(t, http.StatusForbidden, serve(domain.RoleManager, mw.RequireAdmin))
	assert.Equal(t, http.StatusOK, serve(domain.RoleAdmin, mw.RequireAdmin))
}

func TestRequireRole_NoUserContext(t *testing.T) {
	mw := auth.NewMiddleware(newTokenManager(30), testutil.Logger())
	called := false
	handler := mw.RequireRole(domain.RoleAdmin)(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}
