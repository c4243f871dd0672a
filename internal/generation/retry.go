package generation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TransientError marks a failure worth retrying: a transport error, a 5xx,
// or a 409 from the backend meaning generation is already in flight
// elsewhere.
type TransientError struct {
	Status int // 0 for transport failures
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generation backend returned status %d", e.Status)
	}
	return fmt.Sprintf("generation request failed: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RetryPolicy is a bounded retry loop with a pluggable backoff and
// retryable-error predicate, kept as a named unit so the behavior is
// testable apart from any particular request.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration // attempt starts at 1
	Retryable   func(error) bool
}

// LinearBackoff returns base*attempt.
func LinearBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// ContentRetryPolicy is the policy for topic-content generation: 3 attempts
// with 2s, 4s linear backoff on transient failures. Quiz generation and
// evaluation are deliberately not retried.
func ContentRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     LinearBackoff(2 * time.Second),
		Retryable:   IsTransient,
	}
}

// Do runs op until it succeeds, fails permanently, or attempts run out.
// The last error is returned; waiting respects ctx cancellation.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		last = op(ctx)
		if last == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(last) {
			return last
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := time.Duration(0)
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return last
}
