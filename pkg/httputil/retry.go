package httputil

import (
	"context"
	"errors"
	"time"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times with exponential backoff.
// It retries errors wrapped with [RetryableError] and errors carrying the
// NETWORK_ERROR or TIMEOUT code; other errors are returned immediately.
// The delay doubles after each failed attempt.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
//
// Nothing in the lookup client retries on its own. Retry is for callers that
// let the user ask for another attempt.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// IsRetryable reports whether err is a transient failure worth another attempt.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.As(err, new(*RetryableError)) ||
		sserrors.Is(err, sserrors.ErrCodeNetwork) ||
		sserrors.Is(err, sserrors.ErrCodeTimeout)
}
