package imagefetch_test

import (
	"context"
	"errors"
	"testing"

	"magicscraper/internal/imagefetch"
)

func TestRetryPolicyStopsOnSuccess(t *testing.T) {
	calls := 0
	attempts, err := imagefetch.RetryPolicy{MaxAttempts: 5}.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts, got attempts=%d calls=%d", attempts, calls)
	}
}

func TestRetryPolicyExhausts(t *testing.T) {
	boom := errors.New("boom")
	var failures []int
	policy := imagefetch.RetryPolicy{
		MaxAttempts: 4,
		OnFailure:   func(attempt int, err error) { failures = append(failures, attempt) },
	}
	attempts, err := policy.Do(context.Background(), func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", attempts)
	}
	if len(failures) != 4 || failures[3] != 4 {
		t.Fatalf("expected OnFailure for every attempt, got %v", failures)
	}
}

func TestRetryPolicyDefaultsAttempts(t *testing.T) {
	attempts, err := imagefetch.RetryPolicy{}.Do(context.Background(), func(context.Context) error {
		return errors.New("always")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != imagefetch.DefaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", imagefetch.DefaultMaxAttempts, attempts)
	}
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts, err := imagefetch.RetryPolicy{MaxAttempts: 10}.Do(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}
