// AngelaMos | 2026
// attempts.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propertyxchange/backend/internal/core"
)

var ErrTooManyAttempts = errors.New("too many failed login attempts")

// LoginGuard counts failed logins per email.
type LoginGuard interface {
	Check(ctx context.Context, email string) error
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// AttemptGuard keeps the counter in Redis with a TTL equal to the lockout
// window, starting at the first failure.
type AttemptGuard struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func NewAttemptGuard(rdb *redis.Client, max int, window time.Duration) *AttemptGuard {
	return &AttemptGuard{rdb: rdb, max: max, window: window}
}

func (g *AttemptGuard) key(email string) string {
	return core.RedisKey("login_attempts", email)
}

func (g *AttemptGuard) enabled() bool {
	return g != nil && g.rdb != nil && g.max > 0 && g.window > 0
}

func (g *AttemptGuard) Check(ctx context.Context, email string) error {
	if !g.enabled() {
		return nil
	}

	count, err := g.rdb.Get(ctx, g.key(email)).Int()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read login attempts: %w", err)
	}

	if count >= g.max {
		return ErrTooManyAttempts
	}

	return nil
}

func (g *AttemptGuard) RecordFailure(ctx context.Context, email string) error {
	if !g.enabled() {
		return nil
	}

	key := g.key(email)

	count, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}

	if count == 1 {
		if err := g.rdb.Expire(ctx, key, g.window).Err(); err != nil {
			return fmt.Errorf("expire login attempts: %w", err)
		}
	}

	return nil
}

func (g *AttemptGuard) Reset(ctx context.Context, email string) error {
	if !g.enabled() {
		return nil
	}

	if err := g.rdb.Del(ctx, g.key(email)).Err(); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}

	return nil
}

type noopGuard struct{}

func (noopGuard) Check(context.Context, string) error         { return nil }
func (noopGuard) RecordFailure(context.Context, string) error { return nil }
func (noopGuard) Reset(context.Context, string) error         { return nil }
