// Package retry wraps upstream calls in a bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes when and how often a failed call is retried.
type Policy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	Multiplier  float64
	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable never retries.
	Retryable func(error) bool
	// OnRetry is called before each wait. Optional.
	OnRetry func(err error, wait time.Duration)
}

// Default attempts 3 times, waiting 1s then 2s, on errors accepted by retryable.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
		Retryable:   retryable,
	}
}

// Do runs op under the policy and returns the last error once attempts are exhausted.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          multiplier,
		MaxInterval:         maxInterval(p.BaseDelay, multiplier, attempts),
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(p.OnRetry))
	}

	return backoff.Retry(ctx, func() (T, error) {
		res, err := op(ctx)
		if err != nil && (p.Retryable == nil || !p.Retryable(err)) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}, opts...)
}

// maxInterval is the longest single wait the policy can produce.
func maxInterval(base time.Duration, multiplier float64, attempts uint) time.Duration {
	d := float64(base)
	for i := uint(1); i < attempts; i++ {
		d *= multiplier
	}
	if d < 1 {
		return time.Millisecond
	}
	return time.Duration(d)
}
