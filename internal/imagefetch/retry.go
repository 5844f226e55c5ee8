package imagefetch

import (
	"context"

	"github.com/cenkalti/backoff/v5"
)

// DefaultMaxAttempts bounds how many times a sweep is restarted.
const DefaultMaxAttempts = 10

// RetryPolicy reruns an operation immediately after each failure until it
// succeeds or MaxAttempts runs have failed.
type RetryPolicy struct {
	MaxAttempts int
	// OnFailure is called after every failed attempt, including the last.
	OnFailure func(attempt int, err error)
}

// Do runs op under the policy and returns the number of attempts made. After
// exhaustion the last error is returned. Context cancellation stops retrying
// at once and is returned as is.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := op(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if p.OnFailure != nil {
			p.OnFailure(attempts, err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
	)
	return attempts, err
}
