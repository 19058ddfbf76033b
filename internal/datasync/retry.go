package datasync

import (
	"context"
	"math"
	"time"

	"github.com/avast/retry-go"

	"github.com/at-ishikawa/quizsync/internal/config"
)

// RetryPolicy retries a remote call with exponential backoff.
// The delay after the n-th failed attempt (n starting at 0) is min(InitialDelay*Multiplier^n, MaxDelay).
type RetryPolicy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	// Attempts is the total number of calls, including the first one.
	Attempts uint

	// OnDelay is called with every computed delay before waiting.
	OnDelay func(n uint, delay time.Duration, err error)
}

// DefaultRetryPolicy waits 1s, 2s between three attempts and never more than 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     10 * time.Second,
		Attempts:     3,
	}
}

// NewRetryPolicy builds a policy from the sync retry configuration.
func NewRetryPolicy(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		InitialDelay: cfg.InitialDelay,
		Multiplier:   cfg.Multiplier,
		MaxDelay:     cfg.MaxDelay,
		Attempts:     cfg.Attempts,
	}
}

// Delay returns the wait after the n-th failed attempt.
func (p RetryPolicy) Delay(n uint) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(n))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Do calls fn until it succeeds, the attempts are exhausted or ctx is done.
// The returned error is the one of the last attempt.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return retry.Unrecoverable(err)
			}
			return fn(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool {
			return ctx.Err() == nil
		}),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			delay := p.Delay(n)
			if p.OnDelay != nil {
				p.OnDelay(n, delay, err)
			}
			return delay
		}),
	)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
