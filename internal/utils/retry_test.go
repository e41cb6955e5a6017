package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Retry(context.Background(), 3, 10*time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	// two backoff sleeps: 10ms then 20ms
	if elapsed < 30*time.Millisecond {
		t.Errorf("elapsed %v, want at least 30ms of backoff", elapsed)
	}
}

func TestRetrySurfacesLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return fmt.Errorf("failure %d", calls)
	})

	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
	if err == nil || err.Error() != "failure 2" {
		t.Errorf("Retry error = %v, want the second failure", err)
	}
}

func TestRetryFirstSuccessSkipsBackoff(t *testing.T) {
	start := time.Now()
	err := Retry(context.Background(), 5, time.Second, func() error { return nil })
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("success path slept %v, want no backoff", elapsed)
	}
}

func TestRetryHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Minute, func() error { return errors.New("always") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry error = %v, want context.Canceled", err)
	}
}
