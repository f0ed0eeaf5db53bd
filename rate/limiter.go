package rate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited signals that a key has exhausted its window budget. It is
// carried in [Result] for callers that prefer errors over flags.
var ErrRateLimited = errors.New("rate: limit exceeded")

// CounterStore increments a window-scoped counter and returns the new count.
// The ttl is the remaining life of the current window; implementations must
// make sure the counter disappears once the window ends.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Result describes the outcome of one [Limiter.Allow] call.
type Result struct {
	// Allowed reports whether the request fits the current window.
	Allowed bool
	// Remaining is the budget left in the window after this request.
	Remaining int
	// RetryAfter is how long until the window resets. Zero when allowed.
	RetryAfter time.Duration
}

// Limiter enforces a fixed-window limit per key.
type Limiter struct {
	store  CounterStore
	limit  int
	window time.Duration
	now    func() time.Time
}

// New creates a limiter allowing limit requests per window per key.
func New(store CounterStore, limit int, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate: counter store is required")
	}
	if limit <= 0 {
		return nil, errors.New("rate: limit must be positive")
	}
	if window <= 0 {
		return nil, errors.New("rate: window must be positive")
	}
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}, nil
}

// NewStrict creates the credential-endpoint preset: 10 requests per
// 15 minutes.
func NewStrict(store CounterStore) (*Limiter, error) {
	return New(store, 10, 15*time.Minute)
}

// NewLenient creates the authenticated-traffic preset: 100 requests per
// minute.
func NewLenient(store CounterStore) (*Limiter, error) {
	return New(store, 100, time.Minute)
}

// WithClock replaces the limiter's time source. Tests use this to step
// across window boundaries without sleeping.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Allow records one hit for key and reports whether it fits the current
// window. A non-nil error means the counter store failed, not that the key
// is over budget.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowStart := now.Truncate(l.window)
	windowEnd := windowStart.Add(l.window)
	slot := fmt.Sprintf("%s:%d", key, windowStart.Unix())

	count, err := l.store.Incr(ctx, slot, windowEnd.Sub(now))
	if err != nil {
		return Result{}, fmt.Errorf("rate: counter store: %w", err)
	}

	if count > int64(l.limit) {
		return Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: windowEnd.Sub(now),
		}, nil
	}
	return Result{
		Allowed:   true,
		Remaining: l.limit - int(count),
	}, nil
}

// Limit returns the per-window budget.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the window length.
func (l *Limiter) Window() time.Duration { return l.window }
