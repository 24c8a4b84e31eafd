// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyxchange/backend/internal/core"
)

type mockVerifier struct {
	verifyFn func(token string) (*SessionClaims, error)
}

func (m *mockVerifier) VerifySessionToken(
	_ context.Context,
	token string,
) (*SessionClaims, error) {
	return m.verifyFn(token)
}

type mockLoader struct {
	loadFn func(id string) (*Identity, error)
}

func (m *mockLoader) LoadIdentity(_ context.Context, id string) (*Identity, error) {
	return m.loadFn(id)
}

func validVerifier() *mockVerifier {
	return &mockVerifier{verifyFn: func(token string) (*SessionClaims, error) {
		switch token {
		case "good":
			return &SessionClaims{UserID: "u1", TokenID: "jti"}, nil
		case "expired":
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		default:
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
	}}
}

func loaderWith(status core.Status, role core.Role) *mockLoader {
	return &mockLoader{loadFn: func(id string) (*Identity, error) {
		return &Identity{UserID: id, Role: role, Status: status}, nil
	}}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp core.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func runGate(gate *Gate, req *http.Request) (*httptest.ResponseRecorder, *http.Request) {
	var seen *http.Request
	h := gate.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func withCookie(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	return req
}

func TestGate_NoToken(t *testing.T) {
	gate := NewGate(validVerifier(), loaderWith(core.StatusActive, core.RoleUser), "")

	rec, seen := runGate(gate, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}

func TestGate_TokenErrors(t *testing.T) {
	gate := NewGate(validVerifier(), loaderWith(core.StatusActive, core.RoleUser), "token")

	rec, _ := runGate(gate, withCookie("tampered"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", errorCode(t, rec))

	rec, _ = runGate(gate, withCookie("expired"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", errorCode(t, rec))
}

func TestGate_SetsContext(t *testing.T) {
	gate := NewGate(validVerifier(), loaderWith(core.StatusActive, core.RoleStaff), "token")

	rec, seen := runGate(gate, withCookie("good"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)

	ctx := seen.Context()
	assert.Equal(t, "u1", GetUserID(ctx))
	assert.Equal(t, core.RoleStaff, GetUserRole(ctx))
	assert.Equal(t, core.StatusActive, GetUserStatus(ctx))
	assert.Equal(t, "jti", GetClaims(ctx).TokenID)
	assert.True(t, IsAuthenticated(ctx))
	assert.False(t, IsAdmin(ctx))
}

func TestGate_AccountStatus(t *testing.T) {
	tests := []struct {
		status core.Status
		code   string
	}{
		{core.StatusBanned, "ACCOUNT_BANNED"},
		{core.StatusSuspended, "ACCOUNT_SUSPENDED"},
		{core.Status("DELETED"), "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			gate := NewGate(validVerifier(), loaderWith(tt.status, core.RoleUser), "token")

			rec, seen := runGate(gate, withCookie("good"))
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
			assert.Nil(t, seen)
		})
	}
}

func TestGate_UserGone(t *testing.T) {
	gate := NewGate(validVerifier(), &mockLoader{loadFn: func(string) (*Identity, error) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}}, "token")

	rec, _ := runGate(gate, withCookie("good"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "USER_NOT_FOUND", errorCode(t, rec))
}

func TestGate_LoaderFailure(t *testing.T) {
	gate := NewGate(validVerifier(), &mockLoader{loadFn: func(string) (*Identity, error) {
		return nil, errors.New("db down")
	}}, "token")

	rec, _ := runGate(gate, withCookie("good"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGate_BearerFallback(t *testing.T) {
	gate := NewGate(validVerifier(), loaderWith(core.StatusActive, core.RoleUser), "token")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")

	rec, _ := runGate(gate, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractToken(req, "token"))

	req.Header.Set("Authorization", "bearer  abc ")
	assert.Equal(t, "abc", ExtractToken(req, "token"))

	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, ExtractToken(req, "token"))

	req.Header.Set("Authorization", "Bearer header")
	req.AddCookie(&http.Cookie{Name: "token", Value: "cookie"})
	assert.Equal(t, "cookie", ExtractToken(req, "token"))
	assert.Equal(t, "header", ExtractToken(req, "other"))
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(mw func(http.Handler) http.Handler, role core.Role) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if role != "" {
			req = req.WithContext(context.WithValue(req.Context(), UserRoleKey, role))
		}
		rec := httptest.NewRecorder()
		mw(ok).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(RequireAdmin, ""))
	assert.Equal(t, http.StatusForbidden, serve(RequireAdmin, core.RoleStaff))
	assert.Equal(t, http.StatusOK, serve(RequireAdmin, core.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, serve(RequireStaff, core.RoleUser))
	assert.Equal(t, http.StatusOK, serve(RequireStaff, core.RoleStaff))
	assert.Equal(t, http.StatusOK, serve(RequireStaff, core.RoleAdmin))

	assert.Equal(t, http.StatusOK, serve(RequireUser, core.RoleUser))
	assert.Equal(t, http.StatusUnauthorized, serve(RequireUser, ""))
}
