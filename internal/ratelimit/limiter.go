// Package ratelimit implements the fixed-window request limiter: a per
// identity counter that admits at most MaxRequests per window, the HTTP
// middleware that applies it, and the decision statistics.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"
)

// Window is the counter state of one identity.
type Window struct {
	Start time.Time
	Count int
}

// Store owns the identity to window mapping. Hit records one request at now
// and returns the window after the increment. A window whose age exceeds
// the window duration is replaced by a fresh one with Count 1.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
	Count      int
	// At is the limiter clock reading the decision was made at.
	At time.Time
}

type Limiter struct {
	store       Store
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

type LimiterOption func(*Limiter)

// WithNow replaces the clock, mostly for tests.
func WithNow(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLimiter(store Store, maxRequests int, window time.Duration, opts ...LimiterOption) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store is required")
	}
	if maxRequests <= 0 {
		return nil, errors.New("ratelimit: max requests must be positive")
	}
	if window <= 0 {
		return nil, errors.New("ratelimit: window must be positive")
	}
	l := &Limiter{
		store:       store,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) MaxRequests() int      { return l.maxRequests }
func (l *Limiter) Window() time.Duration { return l.window }

// Allow counts one request for key and decides whether it is admitted.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	w, err := l.store.Hit(ctx, key, now, l.window)
	if err != nil {
		return Decision{}, err
	}
	return decide(w, now, l.maxRequests, l.window), nil
}

func decide(w Window, now time.Time, limit int, window time.Duration) Decision {
	resetAt := w.Start.Add(window)
	retryAfter := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if retryAfter < 0 {
		retryAfter = 0
	}
	remaining := limit - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    w.Count <= limit,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
		Count:      w.Count,
		At:         now,
	}
}
