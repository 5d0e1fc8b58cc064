package modules

import (
	"context"
	"time"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/resilience"
)

// Retry runs its modules again over the same inputs when they fail. Every
// attempt is a fresh fold, so module events fire once per attempt.
type Retry struct {
	modules []engine.Module
	cfg     resilience.RetryConfig
}

var _ engine.Module = (*Retry)(nil)

// NewRetry wraps modules with resilience.DefaultRetryConfig.
func NewRetry(modules ...engine.Module) *Retry {
	return &Retry{modules: modules, cfg: resilience.DefaultRetryConfig()}
}

// WithConfig replaces the retry configuration. Zero fields take defaults.
func (m *Retry) WithConfig(cfg resilience.RetryConfig) *Retry {
	m.cfg = cfg
	return m
}

func (m *Retry) Name() string { return "retry" }

func (m *Retry) Execute(ctx context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	cfg := m.cfg
	log := ec.Logger()
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.WithError(err).Warn("retrying modules", logger.Fields(
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
		))
		if onRetry != nil {
			onRetry(attempt, err, backoff)
		}
	}
	return resilience.Retry(ctx, cfg, func(ctx context.Context) ([]document.Document, error) {
		return ec.ExecuteModules(ctx, m.modules, inputs)
	})
}
