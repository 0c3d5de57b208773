package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window limiter shared by every instance pointing at
// the same Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
		window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	start := windowStart(now, l.window)
	reset := start.Add(l.window).UTC()
	ttl := int64(l.window/time.Second) + 1

	res, err := redisIncrScript.Run(ctx, l.client, []string{l.buildKey(key, start)}, ttl).Result()
	if err != nil {
		return Result{}, err
	}
	count, ok := res.(int64)
	if !ok {
		return Result{}, errors.New("rate limit redis: unexpected response type")
	}
	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	return Result{Allowed: true, Remaining: limit - int(count), Reset: reset}, nil
}

func (l *RedisLimiter) buildKey(key string, start time.Time) string {
	window := strconv.FormatInt(start.Unix(), 10)
	if l.prefix == "" {
		return key + ":" + window
	}
	return l.prefix + ":" + key + ":" + window
}
