package resilience

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kbukum/docflow/errors"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts counts the first attempt too.
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff" validate:"gte=0"`
	BackoffFactor  float64       `yaml:"backoff_factor" mapstructure:"backoff_factor" validate:"gte=0"`
	// Jitter randomizes each backoff by up to this fraction (0 to 1).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`

	// RetryIf decides whether err is worth another attempt. Defaults to
	// DefaultRetryIf.
	RetryIf func(err error) bool `yaml:"-" mapstructure:"-"`
	// OnRetry is called before sleeping for the next attempt.
	OnRetry func(attempt int, err error, backoff time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryConfig returns three attempts starting at 100ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// ApplyDefaults fills zero fields from DefaultRetryConfig.
func (c *RetryConfig) ApplyDefaults() {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = d.BackoffFactor
	}
	if c.RetryIf == nil {
		c.RetryIf = d.RetryIf
	}
}

// DefaultRetryIf retries everything except cancellation and AppErrors not
// marked retryable.
func DefaultRetryIf(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}

// Retry calls fn until it succeeds, the attempts run out or RetryIf
// rejects the error. The last error is returned.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	cfg.ApplyDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts {
			break
		}

		backoff := cfg.Backoff(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// Backoff returns the delay after the given failed attempt:
// InitialBackoff * BackoffFactor^(attempt-1), jittered and capped at
// MaxBackoff.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if c.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * c.Jitter
	}
	if c.MaxBackoff > 0 && d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	if d < 0 {
		d = float64(c.InitialBackoff)
	}
	return time.Duration(d)
}
