// AngelaMos | 2026
// entity.go

package auth

import (
	"context"
	"time"

	"github.com/propertyxchange/backend/internal/core"
)

// UserInfo is the slice of a user record the auth flows work with.
type UserInfo struct {
	ID            string
	Email         string
	Username      string
	PasswordHash  string
	Role          core.Role
	Status        core.Status
	EmailVerified bool
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *UserInfo) IsBanned() bool {
	return u.Status == core.StatusBanned
}

func (u *UserInfo) IsSuspended() bool {
	return u.Status == core.StatusSuspended
}

type NewUser struct {
	Email                 string
	Username              string
	PasswordHash          string
	VerificationToken     string
	VerificationExpiresAt time.Time
}

// UserProvider is the credential store as seen from auth. Lookups that
// match nothing return an error wrapping core.ErrNotFound; conditional
// updates (VerifyEmail, ResetPassword) do the same when no live token
// matches.
type UserProvider interface {
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByUsername(ctx context.Context, username string) (*UserInfo, error)
	GetUnverifiedByEmail(ctx context.Context, email string) (*UserInfo, error)
	Create(ctx context.Context, user NewUser) (*UserInfo, error)
	SetVerificationToken(
		ctx context.Context,
		id, token string,
		expiresAt time.Time,
	) error
	VerifyEmail(ctx context.Context, code string, now time.Time) (*UserInfo, error)
	SetResetToken(
		ctx context.Context,
		id, tokenHash string,
		expiresAt time.Time,
	) error
	ResetPassword(
		ctx context.Context,
		tokenHash, passwordHash string,
		now time.Time,
	) (*UserInfo, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
