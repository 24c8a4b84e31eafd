// AngelaMos | 2026
// handler_test.go

package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyxchange/backend/internal/core"
	"github.com/propertyxchange/backend/internal/middleware"
)

func asUser(id string, role core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, id)
			ctx = context.WithValue(ctx, middleware.UserRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(repo *mockRepository, id string, role core.Role) chi.Router {
	h := NewHandler(NewService(repo))
	r := chi.NewRouter()
	h.RegisterRoutes(r, asUser(id, role))
	h.RegisterAdminRoutes(r, asUser(id, role))
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetMe(t *testing.T) {
	r := newTestRouter(fixtures(), userID, core.RoleUser)

	rec := serve(r, http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, userID, resp.Data["id"])
	assert.NotContains(t, resp.Data, "password_hash")
}

func TestHandler_AdminRoutesRequireAdmin(t *testing.T) {
	r := newTestRouter(fixtures(), userID, core.RoleUser)

	rec := serve(r, http.MethodGet, "/admin/users/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(r, http.MethodGet, "/admin/users/"+adminID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_StaffCanLookUpUser(t *testing.T) {
	r := newTestRouter(fixtures(), otherID, core.RoleStaff)

	rec := serve(r, http.MethodGet, "/admin/users/"+userID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodGet, "/admin/users/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ToggleBan(t *testing.T) {
	repo := fixtures()
	r := newTestRouter(repo, adminID, core.RoleAdmin)

	rec := serve(r, http.MethodPost, "/admin/users/"+userID+"/ban", `{"reason":"spam"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.StatusBanned, repo.users[userID].Status)

	rec = serve(r, http.MethodPost, "/admin/users/"+userID+"/ban", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.StatusActive, repo.users[userID].Status)

	rec = serve(r, http.MethodPost, "/admin/users/"+adminID+"/ban", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_UpdateUserRole_Validation(t *testing.T) {
	r := newTestRouter(fixtures(), adminID, core.RoleAdmin)

	rec := serve(r, http.MethodPut, "/admin/users/"+userID+"/role", `{"role":"OWNER"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, http.MethodPut, "/admin/users/"+userID+"/role", `{"role":"STAFF"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_ListUsers_BadFilter(t *testing.T) {
	r := newTestRouter(fixtures(), adminID, core.RoleAdmin)

	rec := serve(r, http.MethodGet, "/admin/users/?status=deleted", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
