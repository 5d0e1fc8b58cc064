package bootstrap

import (
	"time"

	"github.com/kbukum/docflow/logger"
)

// Option configures the App during creation. Options are not generic so
// they work with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	signals         *bool
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the application logger. Without it the global logger is
// initialized from the config's Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout bounds the time the stop hooks may take.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithSignals controls whether RunTask cancels the task on SIGINT and
// SIGTERM. Enabled by default.
func WithSignals(enabled bool) Option {
	return func(o *appOptions) {
		o.signals = &enabled
	}
}
