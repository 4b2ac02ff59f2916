package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // exponential backoff between attempts
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying: the operation failed
// definitively (404, malformed payload) rather than transiently.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// WithRetry runs fn up to MaxAttempts times, backing off between attempts.
// It returns the number of attempts made alongside the final error, so
// callers can tally retries. A Permanent error stops immediately.
func WithRetry(ctx context.Context, config Config, fn func() error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		var pe *permanentError
		if errors.As(err, &pe) {
			return attempt, pe.err
		}

		if attempt == config.MaxAttempts {
			return attempt, fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
		}

		delay := config.Delay
		if config.Backoff {
			delay = config.Delay << (attempt - 1)
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}
	}

	return config.MaxAttempts, lastErr
}
