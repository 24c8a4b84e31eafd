// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/propertyxchange/backend/internal/core"
)

type User struct {
	ID                         string      `db:"id"`
	Email                      string      `db:"email"`
	Username                   string      `db:"username"`
	PasswordHash               string      `db:"password_hash"`
	Role                       core.Role   `db:"role"`
	Status                     core.Status `db:"status"`
	EmailVerified              bool        `db:"email_verified"`
	VerificationToken          *string     `db:"verification_token"`
	VerificationTokenExpiresAt *time.Time  `db:"verification_token_expires_at"`
	ResetPasswordToken         *string     `db:"reset_password_token"`
	ResetPasswordExpiresAt     *time.Time  `db:"reset_password_expires_at"`
	LastLogin                  *time.Time  `db:"last_login"`
	BannedAt                   *time.Time  `db:"banned_at"`
	BannedReason               *string     `db:"banned_reason"`
	BannedBy                   *string     `db:"banned_by"`
	CreatedAt                  time.Time   `db:"created_at"`
	UpdatedAt                  time.Time   `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == core.RoleAdmin
}

func (u *User) IsBanned() bool {
	return u.Status == core.StatusBanned
}

// HasPendingVerification reports whether an unexpired code is on file.
func (u *User) HasPendingVerification(now time.Time) bool {
	return u.VerificationToken != nil &&
		u.VerificationTokenExpiresAt != nil &&
		now.Before(*u.VerificationTokenExpiresAt)
}

const userColumns = `id, email, username, password_hash, role, status,
		       email_verified, verification_token, verification_token_expires_at,
		       reset_password_token, reset_password_expires_at, last_login,
		       banned_at, banned_reason, banned_by, created_at, updated_at`
