// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/propertyxchange/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetUnverifiedByEmail(ctx context.Context, email string) (*User, error)
	SetVerificationToken(
		ctx context.Context,
		id, token string,
		expiresAt time.Time,
	) error
	VerifyEmail(ctx context.Context, code string, now time.Time) (*User, error)
	SetResetToken(
		ctx context.Context,
		id, tokenHash string,
		expiresAt time.Time,
	) error
	ResetPassword(
		ctx context.Context,
		tokenHash, passwordHash string,
		now time.Time,
	) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateRole(ctx context.Context, id string, role core.Role) (*User, error)
	ToggleBan(
		ctx context.Context,
		id, bannedBy, reason string,
		at time.Time,
	) (*User, error)
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	Stats(ctx context.Context) (*Stats, error)
}

type Stats struct {
	Total     int `db:"total"`
	Verified  int `db:"verified"`
	Active    int `db:"active"`
	Banned    int `db:"banned"`
	Suspended int `db:"suspended"`
	Users     int `db:"users"`
	Staff     int `db:"staff"`
	Admins    int `db:"admins"`
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			id, email, username, password_hash, role, status, email_verified,
			verification_token, verification_token_expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	row := struct {
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}{}

	err := r.db.GetContext(ctx, &row, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		string(user.Role),
		string(user.Status),
		user.EmailVerified,
		user.VerificationToken,
		user.VerificationTokenExpiresAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = row.UpdatedAt

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, "get user", query, id)
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, "get user by email", query, email)
}

func (r *repository) GetByUsername(
	ctx context.Context,
	username string,
) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, "get user by username", query, username)
}

func (r *repository) GetUnverifiedByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND email_verified = FALSE`
	return r.getOne(ctx, "get unverified user", query, email)
}

func (r *repository) SetVerificationToken(
	ctx context.Context,
	id, token string,
	expiresAt time.Time,
) error {
	query := `
		UPDATE users
		SET verification_token = $2,
		    verification_token_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1 AND email_verified = FALSE`

	return r.execOne(ctx, "set verification token", query, id, token, expiresAt)
}

// VerifyEmail flips email_verified and clears the code pair in one
// statement. Only one row is touched even if two accounts hold the same code.
func (r *repository) VerifyEmail(
	ctx context.Context,
	code string,
	now time.Time,
) (*User, error) {
	query := `
		UPDATE users
		SET email_verified = TRUE,
		    verification_token = NULL,
		    verification_token_expires_at = NULL,
		    updated_at = $2
		WHERE id = (
			SELECT id FROM users
			WHERE verification_token = $1
			  AND verification_token_expires_at > $2
			  AND email_verified = FALSE
			ORDER BY verification_token_expires_at DESC
			LIMIT 1
		)
		RETURNING ` + userColumns

	return r.getOne(ctx, "verify email", query, code, now)
}

func (r *repository) SetResetToken(
	ctx context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	query := `
		UPDATE users
		SET reset_password_token = $2,
		    reset_password_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "set reset token", query, id, tokenHash, expiresAt)
}

// ResetPassword consumes an unexpired reset token and stores the new
// hash in the same statement, so a token can only be redeemed once.
func (r *repository) ResetPassword(
	ctx context.Context,
	tokenHash, passwordHash string,
	now time.Time,
) (*User, error) {
	query := `
		UPDATE users
		SET password_hash = $2,
		    reset_password_token = NULL,
		    reset_password_expires_at = NULL,
		    updated_at = $3
		WHERE reset_password_token = $1
		  AND reset_password_expires_at > $3
		RETURNING ` + userColumns

	return r.getOne(ctx, "reset password", query, tokenHash, passwordHash, now)
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) UpdateLastLogin(
	ctx context.Context,
	id string,
	at time.Time,
) error {
	query := `UPDATE users SET last_login = $2 WHERE id = $1`

	return r.execOne(ctx, "update last login", query, id, at)
}

func (r *repository) UpdateRole(
	ctx context.Context,
	id string,
	role core.Role,
) (*User, error) {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return r.getOne(ctx, "update role", query, id, string(role))
}

// ToggleBan bans a non-banned user or restores a banned one. The CASE
// expressions read the pre-update row, so the flip is a single write.
func (r *repository) ToggleBan(
	ctx context.Context,
	id, bannedBy, reason string,
	at time.Time,
) (*User, error) {
	query := `
		UPDATE users
		SET status = CASE WHEN status = 'BANNED' THEN 'ACTIVE' ELSE 'BANNED' END,
		    banned_at = CASE WHEN status = 'BANNED' THEN NULL ELSE $4::timestamptz END,
		    banned_reason = CASE WHEN status = 'BANNED' THEN NULL ELSE $3 END,
		    banned_by = CASE WHEN status = 'BANNED' THEN NULL ELSE $2::uuid END,
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns

	var reasonArg any
	if reason != "" {
		reasonArg = reason
	}

	return r.getOne(ctx, "toggle ban", query, id, bannedBy, reasonArg, at)
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR username ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE email_verified) AS verified,
			COUNT(*) FILTER (WHERE status = 'ACTIVE') AS active,
			COUNT(*) FILTER (WHERE status = 'BANNED') AS banned,
			COUNT(*) FILTER (WHERE status = 'SUSPENDED') AS suspended,
			COUNT(*) FILTER (WHERE role = 'USER') AS users,
			COUNT(*) FILTER (WHERE role = 'STAFF') AS staff,
			COUNT(*) FILTER (WHERE role = 'ADMIN') AS admins
		FROM users`

	var stats Stats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	return &stats, nil
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
