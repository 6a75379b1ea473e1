package httpauth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/actor"
)

func TestIssueAndRequireRoundTrip(t *testing.T) {
	mw := New("test-secret")
	token, err := Issue([]byte("test-secret"), 42, actor.RoleStaff, 5, 3600)
	require.NoError(t, err)

	var captured actor.Context
	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), captured.UserID)
	assert.Equal(t, actor.RoleStaff, captured.Role)
	assert.Equal(t, int64(5), captured.DepartmentID)
	assert.True(t, captured.HasDepartment())
}

func TestRequireRejectsMissingHeader(t *testing.T) {
	mw := New("test-secret")
	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRejectsTokenSignedWithWrongSecret(t *testing.T) {
	mw := New("real-secret")
	token, err := Issue([]byte("wrong-secret"), 1, actor.RoleCitizen, 0, 3600)
	require.NoError(t, err)

	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a token signed by the wrong secret")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRejectsExpiredToken(t *testing.T) {
	mw := New("test-secret")
	token, err := Issue([]byte("test-secret"), 1, actor.RoleCitizen, 0, -60)
	require.NoError(t, err)

	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRejectsMalformedHeader(t *testing.T) {
	mw := New("test-secret")
	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a malformed header")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCitizenTokenCarriesNoDepartment(t *testing.T) {
	token, err := Issue([]byte("s"), 7, actor.RoleCitizen, 0, 3600)
	require.NoError(t, err)

	mw := New("s")
	var captured actor.Context
	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, captured.HasDepartment())
}
