// Package ratelimit provides the process-wide dispatch gate for outbound API calls.
package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"NewsIngest/internal/domain"
)

// Gate enforces a minimum interval between dispatches. One Gate is shared by
// every fetch in the process; concurrent callers queue on it.
type Gate struct {
	limiter  *rate.Limiter
	interval time.Duration

	dispatched atomic.Int64
	throttled  atomic.Int64
}

// NewGate builds a gate with burst 1. A non-positive interval disables throttling.
func NewGate(interval time.Duration) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}

// Interval returns the configured minimum spacing.
func (g *Gate) Interval() time.Duration { return g.interval }

// Wait blocks until the caller may dispatch and returns how long it waited.
// On cancellation the reservation is released for the next caller.
func (g *Gate) Wait(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r := g.limiter.Reserve()
	delay := r.Delay()
	if delay <= 0 {
		g.dispatched.Add(1)
		return 0, nil
	}

	g.throttled.Add(1)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		g.dispatched.Add(1)
		return delay, nil
	case <-ctx.Done():
		r.Cancel()
		return 0, ctx.Err()
	}
}

// TryAcquire claims a dispatch slot without waiting.
func (g *Gate) TryAcquire() error {
	r := g.limiter.Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return &domain.RateLimitError{RetryAfter: delay}
	}
	g.dispatched.Add(1)
	return nil
}

// Stats reports dispatches granted and how many of them had to wait.
func (g *Gate) Stats() (dispatched, throttled int64) {
	return g.dispatched.Load(), g.throttled.Load()
}
