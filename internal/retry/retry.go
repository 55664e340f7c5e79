// Package retry wraps network calls in an exponential backoff policy.
//
// Only errors marked with [Transient] are retried. Configuration mistakes and
// data-quality skips never reach this package as retryable failures.
package retry

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrTransient marks an error as worth retrying.
var ErrTransient = errors.New("transient failure")

// ErrAttemptsExhausted wraps the last error once the policy gives up.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy is an exponential backoff with a ceiling on the interval.
// The defaults are tuned for slow, rate-limited upstreams.
type Policy struct {
	InitialInterval time.Duration `yaml:"initialInterval"`
	Multiplier      float64       `yaml:"multiplier"`
	MaxInterval     time.Duration `yaml:"maxInterval"`
	MaxAttempts     int           `yaml:"maxAttempts"`
}

// DefaultPolicy returns the production backoff settings.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 2 * time.Minute,
		Multiplier:      1.5,
		MaxInterval:     6 * time.Minute,
		MaxAttempts:     3,
	}
}

// NoRetry runs a call exactly once.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

// Interval returns the wait before the given retry (1 = first retry).
func (p Policy) Interval(retry int) time.Duration {
	p = p.normalized()
	interval := float64(p.InitialInterval)
	for i := 1; i < retry; i++ {
		interval *= p.Multiplier
		if interval >= float64(p.MaxInterval) {
			return p.MaxInterval
		}
	}
	return time.Duration(interval)
}

// Transient marks err as retryable. A nil error stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrTransient)
}

// IsTransient reports whether err carries the transient mark.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithBackoff runs fn until it succeeds, returns a non-transient error, or
// the policy runs out of attempts.
func WithBackoff(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	return Runner{Policy: policy}.Do(ctx, fn)
}

// Runner carries a policy plus hooks; tests replace Sleep.
type Runner struct {
	Policy  Policy
	Sleep   Sleeper
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Do applies the runner's policy to fn.
func (r Runner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	policy := r.Policy.normalized()
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "retry cancelled")
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		wait := policy.Interval(attempt)
		if r.OnRetry != nil {
			r.OnRetry(attempt, wait, lastErr)
		}
		if err := sleep(ctx, wait); err != nil {
			return errors.Wrap(err, "retry cancelled")
		}
	}

	return errors.Wrapf(errors.Mark(lastErr, ErrAttemptsExhausted), "after %d attempts", policy.MaxAttempts)
}
