// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/propertyxchange/backend/internal/core"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	UserRoleKey   contextKey = "user_role"
	UserStatusKey contextKey = "user_status"
	ClaimsKey     contextKey = "session_claims"
)

const DefaultCookieName = "token"

type SessionClaims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenVerifier interface {
	VerifySessionToken(
		ctx context.Context,
		token string,
	) (*SessionClaims, error)
}

// Identity is the live view of a user the gate needs on every request.
type Identity struct {
	UserID string
	Role   core.Role
	Status core.Status
}

type IdentityLoader interface {
	LoadIdentity(ctx context.Context, userID string) (*Identity, error)
}

// Gate authenticates a request from its session token and then re-reads
// the user's current role and status, so a ban takes effect on the next
// request even though the token itself is still valid.
type Gate struct {
	verifier   TokenVerifier
	loader     IdentityLoader
	cookieName string
}

func NewGate(
	verifier TokenVerifier,
	loader IdentityLoader,
	cookieName string,
) *Gate {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	return &Gate{
		verifier:   verifier,
		loader:     loader,
		cookieName: cookieName,
	}
}

func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r, g.cookieName)
		if token == "" {
			core.JSONError(
				w,
				core.UnauthorizedError("Unauthorized - no token provided"),
			)
			return
		}

		claims, err := g.verifier.VerifySessionToken(r.Context(), token)
		if err != nil {
			handleTokenError(w, err)
			return
		}

		identity, err := g.loader.LoadIdentity(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				core.JSONError(w, core.NewAppError(
					core.ErrTokenInvalid,
					"user not found",
					http.StatusForbidden,
					"USER_NOT_FOUND",
				))
				return
			}
			core.InternalServerError(w, err)
			return
		}

		switch identity.Status {
		case core.StatusActive:
		case core.StatusBanned:
			core.JSONError(w, core.UserBannedError())
			return
		case core.StatusSuspended:
			core.JSONError(w, core.UserSuspendedError())
			return
		default:
			core.JSONError(w, core.ForbiddenError("unknown account status"))
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, UserIDKey, identity.UserID)
		ctx = context.WithValue(ctx, UserRoleKey, identity.Role)
		ctx = context.WithValue(ctx, UserStatusKey, identity.Status)
		ctx = context.WithValue(ctx, ClaimsKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func handleTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

// RequireRole must run after Gate.Authenticate. A request that never went
// through the gate has no role and is answered with 401, not 403.
func RequireRole(roles ...core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetUserRole(r.Context())
			if role == "" {
				core.JSONError(w, core.UnauthorizedError(""))
				return
			}

			if !slices.Contains(roles, role) {
				core.JSONError(w, core.ForbiddenError("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(core.RoleAdmin)(next)
}

func RequireStaff(next http.Handler) http.Handler {
	return RequireRole(core.RoleStaff, core.RoleAdmin)(next)
}

func RequireUser(next http.Handler) http.Handler {
	return RequireRole(core.RoleUser, core.RoleStaff, core.RoleAdmin)(next)
}

// ExtractToken prefers the session cookie and falls back to a bearer header
// for clients that keep the token from the response body.
func ExtractToken(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func GetUserRole(ctx context.Context) core.Role {
	if role, ok := ctx.Value(UserRoleKey).(core.Role); ok {
		return role
	}
	return ""
}

func GetUserStatus(ctx context.Context) core.Status {
	if status, ok := ctx.Value(UserStatusKey).(core.Status); ok {
		return status
	}
	return ""
}

func GetClaims(ctx context.Context) *SessionClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*SessionClaims); ok {
		return claims
	}
	return nil
}

func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}

func IsAdmin(ctx context.Context) bool {
	return GetUserRole(ctx) == core.RoleAdmin
}
