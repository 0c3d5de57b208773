// Package ratelimit provides fixed-window limiters used to throttle OTP
// requests per email address.
package ratelimit

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const breakerDuration = 30 * time.Second

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}

func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

// Fallback prefers the primary limiter and switches to the secondary for a
// while after the primary fails.
type Fallback struct {
	primary   Limiter
	secondary Limiter

	mu           sync.Mutex
	breakerUntil time.Time
}

// NewFallback wraps primary with secondary. A nil primary means secondary is
// used for every check.
func NewFallback(primary, secondary Limiter) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if f.primary != nil && !f.breakerActive(now) {
		res, err := f.primary.Allow(ctx, key, limit, now)
		if err == nil {
			return res, nil
		}
		f.trip(err, now)
	}
	return f.secondary.Allow(ctx, key, limit, now)
}

func (f *Fallback) breakerActive(now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.breakerUntil.IsZero() {
		return false
	}
	if now.Before(f.breakerUntil) {
		return true
	}
	f.breakerUntil = time.Time{}
	return false
}

func (f *Fallback) trip(err error, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breakerUntil = now.Add(breakerDuration)
	log.WithError(err).Warn("rate limit: redis unavailable, falling back to memory")
}
