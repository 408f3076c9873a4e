package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds a retry loop. MaxRetries counts retries after the first attempt.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// OnRetry is called before each sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type throttledError struct{ err error }

func (e *throttledError) Error() string { return e.err.Error() }
func (e *throttledError) Unwrap() error { return e.err }

// Throttled marks err as a server-side rate limit; the next delay is doubled.
func Throttled(err error) error {
	if err == nil {
		return nil
	}
	return &throttledError{err: err}
}

func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.MaxInterval = p.MaxDelay
	if bo.MaxInterval <= 0 {
		bo.MaxInterval = backoff.DefaultMaxInterval
	}
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()
	return bo
}

// Do runs fn until it succeeds, returns a permanent error, or retries are
// exhausted. It returns the number of attempts made and the last error with
// retry markers removed. Cancellation is checked before every attempt and
// during every sleep.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	bo := p.newBackOff()

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, joinCtx(err, lastErr)
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = unmark(err)

		var perm *permanentError
		if errors.As(err, &perm) {
			return attempt, lastErr
		}
		if attempt > p.MaxRetries {
			return attempt, lastErr
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			delay = p.MaxDelay
		}
		var thr *throttledError
		if errors.As(err, &thr) {
			delay *= 2
		}
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, lastErr)
		}

		if err := sleep(ctx, delay); err != nil {
			return attempt, joinCtx(err, lastErr)
		}
	}
}

func unmark(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	var thr *throttledError
	if errors.As(err, &thr) {
		return thr.err
	}
	return err
}

func joinCtx(ctxErr, last error) error {
	if last == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last error: %v)", ctxErr, last)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
