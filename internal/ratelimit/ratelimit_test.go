package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client, mr
}

func exhaust(t *testing.T, l Limiter, key string, limit int, now time.Time) {
	t.Helper()
	for i := 0; i < limit; i++ {
		res, err := l.Allow(context.Background(), key, limit, now)
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, limit-i-1, res.Remaining)
	}
	res, err := l.Allow(context.Background(), key, limit, now)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(15 * time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	exhaust(t, l, "otp:a@example.com", 3, now)

	res, err := l.Allow(context.Background(), "otp:b@example.com", 3, now)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "keys are independent")

	res, err = l.Allow(context.Background(), "otp:a@example.com", 3, now.Add(15*time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Allowed, "next window resets the count")
	assert.Equal(t, now.Add(30*time.Minute), res.Reset)
}

func TestRedisLimiter(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewRedisLimiter(client, "siteplanner", 15*time.Minute)
	now := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)

	exhaust(t, l, "otp:a@example.com", 3, now)

	key := "siteplanner:otp:a@example.com:" + "1772359200"
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), 15*time.Minute)

	res, err := l.Allow(context.Background(), "otp:a@example.com", 3, now.Add(15*time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

type failingLimiter struct{ calls int }

func (f *failingLimiter) Allow(context.Context, string, int, time.Time) (Result, error) {
	f.calls++
	return Result{}, errors.New("connection refused")
}

func TestFallbackUsesMemoryWhenRedisFails(t *testing.T) {
	primary := &failingLimiter{}
	f := NewFallback(primary, NewMemoryLimiter(time.Minute))
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	res, err := f.Allow(context.Background(), "k", 1, now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = f.Allow(context.Background(), "k", 1, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 1, primary.calls, "breaker skips the primary")

	_, err = f.Allow(context.Background(), "k", 1, now.Add(breakerDuration+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, primary.calls)
}

func TestFallbackWithoutPrimary(t *testing.T) {
	f := NewFallback(nil, NewMemoryLimiter(time.Minute))
	res, err := f.Allow(context.Background(), "k", 2, time.Now())
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
