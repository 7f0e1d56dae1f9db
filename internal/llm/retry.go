package llm

import (
	"context"
	"fmt"
	"time"
)

// withRetry runs call until it succeeds, fails with a non-transient error or
// maxRetries retries are spent. The delay doubles after every attempt.
func withRetry[T any](ctx context.Context, provider string, maxRetries int, delay time.Duration, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := delay * time.Duration(1<<(attempt-1))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("%s: context cancelled during retry wait: %w", provider, ctx.Err())
			case <-timer.C:
			}
		}

		result, err := call()
		if err == nil {
			return result, nil
		}
		if !isTransientError(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("%s: exhausted %d retries: %w", provider, maxRetries, lastErr)
}
