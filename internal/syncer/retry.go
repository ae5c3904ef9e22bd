package syncer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryOptions configures exponential backoff.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultLoadRetry waits 1s, then 2s, capped at 5s, over 3 attempts.
func DefaultLoadRetry() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}
}

// ErrMaxRetries wraps the last error once every attempt failed.
var ErrMaxRetries = errors.New("maximum retry attempts exceeded")

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Backoff returns the wait after the given failed attempt (1-based).
func (o RetryOptions) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := o.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(o.InitialDelay) * math.Pow(mult, float64(attempt-1)))
	if o.MaxDelay > 0 && (d > o.MaxDelay || d < 0) {
		d = o.MaxDelay
	}
	return d
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry runs op until it succeeds, returns a permanent error, ctx ends or
// the attempts run out. onFailure sees every failed attempt.
func withRetry(ctx context.Context, opts RetryOptions, sleep sleepFunc, op func(attempt int) error, onFailure func(attempt int, err error, wait time.Duration)) (int, error) {
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(attempt)
		if err == nil {
			return attempt, nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return attempt, perm.err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		wait := opts.Backoff(attempt)
		if onFailure != nil {
			onFailure(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return attempt, err
		}
	}
	return attempts, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempts, lastErr)
}
