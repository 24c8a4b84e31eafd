// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/propertyxchange/backend/internal/auth"
	"github.com/propertyxchange/backend/internal/core"
	"github.com/propertyxchange/backend/internal/middleware"
)

var (
	ErrCannotBanSelf  = errors.New("cannot ban yourself")
	ErrCannotBanAdmin = errors.New("cannot ban an admin")
	ErrCannotDemote   = errors.New("cannot change your own role")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	return s.info(s.repo.GetByID(ctx, id))
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	return s.info(s.repo.GetByEmail(ctx, normalizeEmail(email)))
}

func (s *Service) GetByUsername(
	ctx context.Context,
	username string,
) (*auth.UserInfo, error) {
	return s.info(s.repo.GetByUsername(ctx, strings.TrimSpace(username)))
}

func (s *Service) GetUnverifiedByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	return s.info(s.repo.GetUnverifiedByEmail(ctx, normalizeEmail(email)))
}

func (s *Service) Create(
	ctx context.Context,
	nu auth.NewUser,
) (*auth.UserInfo, error) {
	token := nu.VerificationToken
	expiresAt := nu.VerificationExpiresAt

	user := &User{
		ID:                         uuid.New().String(),
		Email:                      normalizeEmail(nu.Email),
		Username:                   strings.TrimSpace(nu.Username),
		PasswordHash:               nu.PasswordHash,
		Role:                       core.RoleUser,
		Status:                     core.StatusActive,
		EmailVerified:              false,
		VerificationToken:          &token,
		VerificationTokenExpiresAt: &expiresAt,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) SetVerificationToken(
	ctx context.Context,
	id, token string,
	expiresAt time.Time,
) error {
	return s.repo.SetVerificationToken(ctx, id, token, expiresAt)
}

func (s *Service) VerifyEmail(
	ctx context.Context,
	code string,
	now time.Time,
) (*auth.UserInfo, error) {
	return s.info(s.repo.VerifyEmail(ctx, code, now))
}

func (s *Service) SetResetToken(
	ctx context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	return s.repo.SetResetToken(ctx, id, tokenHash, expiresAt)
}

func (s *Service) ResetPassword(
	ctx context.Context,
	tokenHash, passwordHash string,
	now time.Time,
) (*auth.UserInfo, error) {
	return s.info(s.repo.ResetPassword(ctx, tokenHash, passwordHash, now))
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

func (s *Service) UpdateLastLogin(
	ctx context.Context,
	id string,
	at time.Time,
) error {
	return s.repo.UpdateLastLogin(ctx, id, at)
}

// LoadIdentity feeds the auth gate on every protected request.
func (s *Service) LoadIdentity(
	ctx context.Context,
	id string,
) (*middleware.Identity, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &middleware.Identity{
		UserID: user.ID,
		Role:   user.Role,
		Status: user.Status,
	}, nil
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	if params.Role != "" {
		role, err := core.ParseRole(params.Role)
		if err != nil {
			return nil, 0, err
		}
		params.Role = role.String()
	}

	if params.Status != "" {
		status, err := core.ParseStatus(params.Status)
		if err != nil {
			return nil, 0, err
		}
		params.Status = status.String()
	}

	return s.repo.List(ctx, params)
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	actorID, targetID, role string,
) (*User, error) {
	parsed, err := core.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	if actorID == targetID {
		return nil, ErrCannotDemote
	}

	user, err := s.repo.UpdateRole(ctx, targetID, parsed)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user role changed",
		"user_id", targetID,
		"role", parsed,
		"by", actorID,
	)

	return user, nil
}

// ToggleBan bans an active or suspended user and lifts the ban of a banned
// one. Admins cannot be banned and nobody can ban themselves.
func (s *Service) ToggleBan(
	ctx context.Context,
	actorID, targetID, reason string,
) (*User, error) {
	if actorID == targetID {
		return nil, ErrCannotBanSelf
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if target.IsAdmin() {
		return nil, ErrCannotBanAdmin
	}

	user, err := s.repo.ToggleBan(
		ctx,
		targetID,
		actorID,
		strings.TrimSpace(reason),
		s.now(),
	)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user ban toggled",
		"user_id", targetID,
		"status", user.Status,
		"by", actorID,
	)

	return user, nil
}

func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &StatsResponse{
		Total:      stats.Total,
		Verified:   stats.Verified,
		Unverified: stats.Total - stats.Verified,
		ByStatus: map[string]int{
			core.StatusActive.String():    stats.Active,
			core.StatusBanned.String():    stats.Banned,
			core.StatusSuspended.String(): stats.Suspended,
		},
		ByRole: map[string]int{
			core.RoleUser.String():  stats.Users,
			core.RoleStaff.String(): stats.Staff,
			core.RoleAdmin.String(): stats.Admins,
		},
	}, nil
}

func (s *Service) info(u *User, err error) (*auth.UserInfo, error) {
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		Role:          u.Role,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	_ auth.UserProvider         = (*Service)(nil)
	_ middleware.IdentityLoader = (*Service)(nil)
)
