package utils

import (
	"context"
	"fmt"
	"time"
)

// Retry runs op up to maxAttempts times, sleeping base * 2^(attempt-1)
// between failures. The first success wins; once attempts are exhausted the
// last error is returned. Callers must ensure op is safe to repeat — Retry
// does not deduplicate attempts.
func Retry(ctx context.Context, maxAttempts int, base time.Duration, op func() error) error {
	if maxAttempts < 1 {
		return fmt.Errorf("retry: maxAttempts must be at least 1, got %d", maxAttempts)
	}

	var lastErr error
	delay := base
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = op(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}
