// AngelaMos | 2026
// attempts_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func TestAttemptGuard_LocksAfterMax(t *testing.T) {
	mr, rdb := newTestRedis(t)
	guard := NewAttemptGuard(rdb, 3, 15*time.Minute)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, guard.Check(ctx, "ada@example.com"))
		require.NoError(t, guard.RecordFailure(ctx, "ada@example.com"))
	}

	assert.ErrorIs(t, guard.Check(ctx, "ada@example.com"), ErrTooManyAttempts)
	assert.NoError(t, guard.Check(ctx, "bob@example.com"))

	ttl := mr.TTL("pxc:login_attempts:ada@example.com")
	assert.Equal(t, 15*time.Minute, ttl)
}

func TestAttemptGuard_WindowExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	guard := NewAttemptGuard(rdb, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, guard.RecordFailure(ctx, "ada@example.com"))
	assert.ErrorIs(t, guard.Check(ctx, "ada@example.com"), ErrTooManyAttempts)

	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, guard.Check(ctx, "ada@example.com"))
}

func TestAttemptGuard_Reset(t *testing.T) {
	_, rdb := newTestRedis(t)
	guard := NewAttemptGuard(rdb, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, guard.RecordFailure(ctx, "ada@example.com"))
	require.NoError(t, guard.Reset(ctx, "ada@example.com"))
	assert.NoError(t, guard.Check(ctx, "ada@example.com"))
}

func TestAttemptGuard_Disabled(t *testing.T) {
	ctx := context.Background()

	var nilGuard *AttemptGuard
	assert.NoError(t, nilGuard.Check(ctx, "x"))

	guard := NewAttemptGuard(nil, 5, time.Minute)
	assert.NoError(t, guard.RecordFailure(ctx, "x"))
	assert.NoError(t, guard.Check(ctx, "x"))
}

func TestAttemptGuard_RedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	guard := NewAttemptGuard(rdb, 1, time.Minute)
	mr.Close()

	assert.Error(t, guard.Check(context.Background(), "ada@example.com"))
}
