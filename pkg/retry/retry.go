package retry

import (
	"context"
	"errors"
	"time"
)

// ErrTransient marks failures that may succeed when retried: network errors,
// timeouts, primary elections.
var ErrTransient = errors.New("transient failure")

// Transient wraps err so that IsTransient reports true. Nil stays nil.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	return errors.Join(ErrTransient, err)
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Policy controls Do.
type Policy struct {
	// Attempts is the total number of calls, including the first one.
	Attempts int
	// Delay is the pause between attempts.
	Delay time.Duration
	// Backoff multiplies Delay after every failed attempt. Values below 1 keep Delay constant.
	Backoff float64
	// Retryable decides whether an error is worth another attempt. Nil retries every error.
	Retryable func(error) bool
}

// Once retries fn a single time when it fails with a transient error.
func Once(ctx context.Context, fn func(context.Context) error) error {
	return Do(ctx, Policy{Attempts: 2, Retryable: IsTransient}, fn)
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. It returns the last error from fn.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay

	var err error
	for i := range attempts {
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(err, ctx.Err())
			case <-timer.C:
			}
			if p.Backoff > 1 {
				delay = time.Duration(float64(delay) * p.Backoff)
			}
		} else if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
	}
	return err
}
