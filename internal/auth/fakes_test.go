// AngelaMos | 2026
// fakes_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/propertyxchange/backend/internal/core"
	"github.com/propertyxchange/backend/internal/mail"
)

type storedUser struct {
	info        UserInfo
	code        string
	codeExpires time.Time
	resetHash   string
	resetExpiry time.Time
}

// memoryUsers mirrors the conditional updates of the SQL repository.
type memoryUsers struct {
	mu     sync.Mutex
	users  map[string]*storedUser
	nextID int
	logins int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]*storedUser{}}
}

func (m *memoryUsers) find(pred func(*storedUser) bool) *storedUser {
	for _, u := range m.users {
		if pred(u) {
			return u
		}
	}
	return nil
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, core.ErrNotFound)
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		info := u.info
		return &info, nil
	}
	return nil, notFound("get user")
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.find(func(u *storedUser) bool { return u.info.Email == email }); u != nil {
		info := u.info
		return &info, nil
	}
	return nil, notFound("get user by email")
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.find(func(u *storedUser) bool { return u.info.Username == username }); u != nil {
		info := u.info
		return &info, nil
	}
	return nil, notFound("get user by username")
}

func (m *memoryUsers) GetUnverifiedByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.find(func(u *storedUser) bool {
		return u.info.Email == email && !u.info.EmailVerified
	})
	if u == nil {
		return nil, notFound("get unverified user")
	}
	info := u.info
	return &info, nil
}

func (m *memoryUsers) Create(_ context.Context, nu NewUser) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.find(func(u *storedUser) bool { return u.info.Email == nu.Email }) != nil {
		return nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}

	m.nextID++
	now := time.Now()
	u := &storedUser{
		info: UserInfo{
			ID:           "user-" + strconv.Itoa(m.nextID),
			Email:        nu.Email,
			Username:     nu.Username,
			PasswordHash: nu.PasswordHash,
			Role:         core.RoleUser,
			Status:       core.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		code:        nu.VerificationToken,
		codeExpires: nu.VerificationExpiresAt,
	}
	m.users[u.info.ID] = u

	info := u.info
	return &info, nil
}

func (m *memoryUsers) SetVerificationToken(
	_ context.Context,
	id, token string,
	expiresAt time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.info.EmailVerified {
		return notFound("set verification token")
	}
	u.code = token
	u.codeExpires = expiresAt
	return nil
}

func (m *memoryUsers) VerifyEmail(
	_ context.Context,
	code string,
	now time.Time,
) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.find(func(u *storedUser) bool {
		return !u.info.EmailVerified && u.code != "" &&
			u.code == code && u.codeExpires.After(now)
	})
	if u == nil {
		return nil, notFound("verify email")
	}
	u.info.EmailVerified = true
	u.code = ""
	u.codeExpires = time.Time{}
	info := u.info
	return &info, nil
}

func (m *memoryUsers) SetResetToken(
	_ context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return notFound("set reset token")
	}
	u.resetHash = tokenHash
	u.resetExpiry = expiresAt
	return nil
}

func (m *memoryUsers) ResetPassword(
	_ context.Context,
	tokenHash, passwordHash string,
	now time.Time,
) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.find(func(u *storedUser) bool {
		return u.resetHash != "" && u.resetHash == tokenHash &&
			u.resetExpiry.After(now)
	})
	if u == nil {
		return nil, notFound("reset password")
	}
	u.info.PasswordHash = passwordHash
	u.resetHash = ""
	u.resetExpiry = time.Time{}
	info := u.info
	return &info, nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return notFound("update password")
	}
	u.info.PasswordHash = passwordHash
	return nil
}

func (m *memoryUsers) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return notFound("update last login")
	}
	u.info.LastLogin = &at
	m.logins++
	return nil
}

func (m *memoryUsers) setStatus(email string, status core.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.find(func(u *storedUser) bool { return u.info.Email == email }); u != nil {
		u.info.Status = status
	}
}

func (m *memoryUsers) stored(email string) *storedUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *storedUser) bool { return u.info.Email == email })
}

type sentMail struct {
	kind   mail.Kind
	to     string
	params map[string]string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (r *recordingMailer) Send(
	_ context.Context,
	kind mail.Kind,
	to string,
	params map[string]string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("smtp: connection refused")
	}
	r.sent = append(r.sent, sentMail{kind: kind, to: to, params: params})
	return nil
}

func (r *recordingMailer) last() sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return sentMail{}
	}
	return r.sent[len(r.sent)-1]
}

func (r *recordingMailer) count(kind mail.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

var _ UserProvider = (*memoryUsers)(nil)
