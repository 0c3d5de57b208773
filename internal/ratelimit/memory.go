package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	window int64
	count  int
}

// MemoryLimiter is a per-process fixed-window limiter.
type MemoryLimiter struct {
	window time.Duration

	mu       sync.Mutex
	counters map[string]*memoryEntry
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		window:   window,
		counters: make(map[string]*memoryEntry),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	start := windowStart(now, l.window)
	reset := start.Add(l.window).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(start.UnixNano())
	entry := l.counters[key]
	if entry == nil || entry.window != start.UnixNano() {
		entry = &memoryEntry{window: start.UnixNano()}
		l.counters[key] = entry
	}
	if entry.count >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	entry.count++
	return Result{Allowed: true, Remaining: limit - entry.count, Reset: reset}, nil
}

// prune drops counters from earlier windows.
func (l *MemoryLimiter) prune(current int64) {
	for key, entry := range l.counters {
		if entry.window < current {
			delete(l.counters, key)
		}
	}
}
