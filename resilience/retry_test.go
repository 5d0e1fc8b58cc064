package resilience

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kbukum/docflow/errors"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, BackoffFactor: 2}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastConfig(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("temporary")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastConfig(2), func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("attempt %d", calls)
	})
	if err == nil || err.Error() != "attempt 2" {
		t.Errorf("got %v, want attempt 2", err)
	}
}

func TestRetrySkipsNonRetryableErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		calls int
	}{
		{"plain error", fmt.Errorf("io"), 3},
		{"non-retryable app error", errors.InvalidInput("x", "bad"), 1},
		{"retryable app error", &errors.AppError{Code: errors.ErrCodeInternal, Retryable: true}, 3},
		{"cancelled", context.Canceled, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, _ = Retry(context.Background(), fastConfig(3), func(context.Context) (int, error) {
				calls++
				return 0, tt.err
			})
			if calls != tt.calls {
				t.Errorf("calls = %d, want %d", calls, tt.calls)
			}
		})
	}
}

func TestRetryStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour}
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	calls := 0
	_, err := Retry(ctx, cfg, func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("fail")
	})
	if err != context.Canceled {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond, BackoffFactor: 2}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for i, w := range want {
		if got := cfg.Backoff(i + 1); got != w {
			t.Errorf("attempt %d: got %v, want %v", i+1, got, w)
		}
	}

	cfg.Jitter = 0.5
	for range 20 {
		if got := cfg.Backoff(1); got < 5*time.Millisecond || got > 15*time.Millisecond {
			t.Fatalf("jittered backoff %v out of range", got)
		}
	}
}
