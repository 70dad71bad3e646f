package chatbackend

import (
	"context"
	"errors"
	"time"
)

// WithRetry calls fn up to 4 times total (the initial attempt plus 3
// retries), backing off exponentially between attempts, but only when the
// failure is a retryable APIError (spec.md §4.6 step 8). Any other error,
// or exhausting the retry budget, is returned as-is.
func WithRetry(ctx context.Context, fn func() error) error {
	const maxRetries = 3
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var apiErr *APIError
		if !errors.As(lastErr, &apiErr) || !apiErr.Retryable || attempt == maxRetries {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}
