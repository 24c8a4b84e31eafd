// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/propertyxchange/backend/internal/config"
	"github.com/propertyxchange/backend/internal/core"
	"github.com/propertyxchange/backend/internal/middleware"
)

// JWTManager signs and verifies the HS256 session credential. The payload
// carries only the user id and timestamps; role and status are always
// re-read by the gate.
type JWTManager struct {
	secret []byte
	config config.SessionConfig
	now    func() time.Time
}

func NewJWTManager(cfg config.SessionConfig) (*JWTManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("session secret is empty")
	}
	if cfg.TokenExpire <= 0 {
		return nil, fmt.Errorf("session token lifetime must be positive")
	}

	return &JWTManager{
		secret: []byte(cfg.Secret),
		config: cfg,
		now:    time.Now,
	}, nil
}

func (m *JWTManager) TokenLifetime() time.Duration {
	return m.config.TokenExpire
}

func (m *JWTManager) CreateSessionToken(
	userID string,
) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.config.TokenExpire)

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Subject(userID).
		IssuedAt(now).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), expiresAt, nil
}

// VerifySessionToken checks the signature first and then applies the
// claim rules against the manager's clock. Any failure maps to either
// core.ErrTokenExpired or core.ErrTokenInvalid.
func (m *JWTManager) VerifySessionToken(
	_ context.Context,
	tokenString string,
) (*middleware.SessionClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.secret),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	if issuer, _ := token.Issuer(); issuer != m.config.Issuer {
		return nil, fmt.Errorf(
			"verify token: unexpected issuer: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	expiresAt, ok := token.Expiration()
	if !ok || expiresAt.IsZero() {
		return nil, fmt.Errorf(
			"verify token: missing expiry: %w",
			core.ErrTokenInvalid,
		)
	}

	if !m.now().Before(expiresAt) {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
	}

	issuedAt, _ := token.IssuedAt()
	tokenID, _ := token.JwtID()

	return &middleware.SessionClaims{
		UserID:    subject,
		TokenID:   tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

var _ middleware.TokenVerifier = (*JWTManager)(nil)
