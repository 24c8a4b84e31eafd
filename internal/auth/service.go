// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/propertyxchange/backend/internal/core"
	"github.com/propertyxchange/backend/internal/mail"
)

var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrEmailNotVerified        = errors.New("email not verified")
	ErrAccountBanned           = errors.New("account banned")
	ErrAccountSuspended        = errors.New("account suspended")
	ErrEmailExists             = errors.New("user already exists and verified")
	ErrUsernameTaken           = errors.New("username already taken")
	ErrInvalidVerificationCode = errors.New("invalid or expired verification code")
	ErrVerificationNotPending  = errors.New("user not found or already verified")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidResetToken       = errors.New("invalid or expired reset token")
	ErrMailDelivery            = errors.New("email delivery failed")
)

type Mailer interface {
	Send(
		ctx context.Context,
		kind mail.Kind,
		recipient string,
		params map[string]string,
	) error
}

type Options struct {
	VerificationTTL  time.Duration
	ResetTTL         time.Duration
	ClientURL        string
	SendWelcomeEmail bool
}

type Service struct {
	users  UserProvider
	jwt    *JWTManager
	mailer Mailer
	guard  LoginGuard
	opts   Options
	now    func() time.Time
}

func NewService(
	users UserProvider,
	jwt *JWTManager,
	mailer Mailer,
	guard LoginGuard,
	opts Options,
) *Service {
	if guard == nil {
		guard = noopGuard{}
	}
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}

	return &Service{
		users:  users,
		jwt:    jwt,
		mailer: mailer,
		guard:  guard,
		opts:   opts,
		now:    time.Now,
	}
}

// Session is a successful sign-in: the user and the credential to set.
type Session struct {
	User      *UserInfo
	Token     string
	ExpiresAt time.Time
}

// RegisterResult distinguishes a fresh account from a re-registration of
// an unverified email, which only re-sends the code.
type RegisterResult struct {
	Session *Session
	User    *UserInfo
	Resent  bool
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*RegisterResult, error) {
	ctx, span := core.StartSpan(ctx, "auth.Register")
	defer span.End()

	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.EmailVerified:
		return nil, ErrEmailExists
	case err == nil:
		if err := s.issueVerification(ctx, existing); err != nil {
			core.SetSpanError(ctx, err)
			return nil, err
		}
		core.AddSpanEvent(ctx, "verification_resent")
		return &RegisterResult{User: existing, Resent: true}, nil
	case !errors.Is(err, core.ErrNotFound):
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	_, err = s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, expiresAt, err := s.newVerificationCode()
	if err != nil {
		return nil, err
	}

	if err := s.send(ctx, mail.KindVerification, email, map[string]string{
		mail.ParamUsername: username,
		mail.ParamCode:     code,
	}); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	user, err := s.users.Create(ctx, NewUser{
		Email:                 email,
		Username:              username,
		PasswordHash:          passwordHash,
		VerificationToken:     code,
		VerificationExpiresAt: expiresAt,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}

	core.AddSpanEvent(ctx, "user_registered", attribute.String("user.id", user.ID))
	slog.InfoContext(ctx, "user registered", "user_id", user.ID)

	return &RegisterResult{Session: session, User: user}, nil
}

func (s *Service) VerifyEmail(ctx context.Context, code string) (*UserInfo, error) {
	user, err := s.users.VerifyEmail(ctx, strings.TrimSpace(code), s.now())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidVerificationCode
		}
		return nil, fmt.Errorf("verify email: %w", err)
	}

	slog.InfoContext(ctx, "email verified", "user_id", user.ID)

	if s.opts.SendWelcomeEmail {
		s.sendBestEffort(ctx, mail.KindWelcome, user.Email, map[string]string{
			mail.ParamUsername: user.Username,
		})
	}

	return user, nil
}

func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.GetUnverifiedByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrVerificationNotPending
		}
		return fmt.Errorf("get unverified user: %w", err)
	}

	return s.issueVerification(ctx, user)
}

// Login checks, in order: lockout, unknown email, unverified email, wrong
// password, then account status. Only password failures and unknown
// emails count towards the lockout.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	ctx, span := core.StartSpan(ctx, "auth.Login")
	defer span.End()

	email := normalizeEmail(req.Email)

	if err := s.guard.Check(ctx, email); err != nil {
		if errors.Is(err, ErrTooManyAttempts) {
			return nil, err
		}
		slog.WarnContext(ctx, "login guard unavailable", "error", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			s.recordFailure(ctx, email)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		s.recordFailure(ctx, email)
		slog.InfoContext(ctx, "login failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	switch user.Status {
	case core.StatusBanned:
		return nil, ErrAccountBanned
	case core.StatusSuspended:
		return nil, ErrAccountSuspended
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
			slog.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	user.LastLogin = &now

	if err := s.guard.Reset(ctx, email); err != nil {
		slog.WarnContext(ctx, "login guard reset failed", "error", err)
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}

	core.AddSpanEvent(ctx, "user_logged_in", attribute.String("user.id", user.ID))

	return session, nil
}

func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	token, err := core.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := s.now().Add(s.opts.ResetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, core.HashToken(token), expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	return s.send(ctx, mail.KindPasswordReset, user.Email, map[string]string{
		mail.ParamUsername: user.Username,
		mail.ParamResetURL: s.resetURL(token),
	})
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	ctx, span := core.StartSpan(ctx, "auth.ResetPassword")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}

	passwordHash, err := core.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.ResetPassword(ctx, core.HashToken(token), passwordHash, s.now())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetToken
		}
		core.SetSpanError(ctx, err)
		return fmt.Errorf("reset password: %w", err)
	}

	core.AddSpanEvent(ctx, "password_reset", attribute.String("user.id", user.ID))
	slog.InfoContext(ctx, "password reset", "user_id", user.ID)

	s.sendBestEffort(ctx, mail.KindPasswordResetSuccess, user.Email, map[string]string{
		mail.ParamUsername: user.Username,
	})

	return nil
}

func (s *Service) CheckAuth(ctx context.Context, userID string) (*UserInfo, error) {
	if userID == "" {
		return nil, fmt.Errorf("check auth: %w", core.ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check auth: %w", err)
	}

	return user, nil
}

// issueVerification sends a fresh code and persists it only after the
// mail went out, so a failed send leaves the previous code valid.
func (s *Service) issueVerification(ctx context.Context, user *UserInfo) error {
	code, expiresAt, err := s.newVerificationCode()
	if err != nil {
		return err
	}

	if err := s.send(ctx, mail.KindVerification, user.Email, map[string]string{
		mail.ParamUsername: user.Username,
		mail.ParamCode:     code,
	}); err != nil {
		return err
	}

	if err := s.users.SetVerificationToken(ctx, user.ID, code, expiresAt); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrVerificationNotPending
		}
		return fmt.Errorf("store verification token: %w", err)
	}

	return nil
}

func (s *Service) newVerificationCode() (string, time.Time, error) {
	code, err := core.GenerateVerificationCode()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate verification code: %w", err)
	}
	return code, s.now().Add(s.opts.VerificationTTL), nil
}

func (s *Service) newSession(user *UserInfo) (*Session, error) {
	token, expiresAt, err := s.jwt.CreateSessionToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("create session token: %w", err)
	}

	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) send(
	ctx context.Context,
	kind mail.Kind,
	to string,
	params map[string]string,
) error {
	if err := s.mailer.Send(ctx, kind, to, params); err != nil {
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}
	return nil
}

func (s *Service) sendBestEffort(
	ctx context.Context,
	kind mail.Kind,
	to string,
	params map[string]string,
) {
	if err := s.mailer.Send(ctx, kind, to, params); err != nil {
		slog.WarnContext(ctx, "notification email not sent",
			"kind", kind,
			"error", err,
		)
	}
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if err := s.guard.RecordFailure(ctx, email); err != nil {
		slog.WarnContext(ctx, "login guard unavailable", "error", err)
	}
}

func (s *Service) resetURL(token string) string {
	return strings.TrimRight(s.opts.ClientURL, "/") +
		"/reset-password/" + url.PathEscape(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
