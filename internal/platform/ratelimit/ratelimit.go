// Package ratelimit bounds request rates per caller. The sliding window
// algorithm counts individual request timestamps rather than fixed buckets,
// which prevents bursts straddling a bucket boundary from doubling the
// effective limit.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports the outcome of a single admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter admits or rejects a request for a caller key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// SlidingWindow is an in-memory Limiter. Not distributed; each process
// enforces its own budget.
type SlidingWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	callers map[string][]time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		callers: make(map[string][]time.Time),
	}
}

func (l *SlidingWindow) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	kept := l.callers[key][:0]
	for _, ts := range l.callers[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.callers[key] = kept
		return Result{
			Allowed:   false,
			Limit:     l.limit,
			Remaining: 0,
			ResetAt:   kept[0].Add(l.window),
		}, nil
	}

	kept = append(kept, now)
	l.callers[key] = kept
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(kept),
		ResetAt:   kept[0].Add(l.window),
	}, nil
}

// Reset clears the window for a key.
func (l *SlidingWindow) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.callers, key)
}
