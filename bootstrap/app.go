package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/observability"
)

const meterName = "github.com/kbukum/docflow"

// App runs one finite docflow task with a uniform lifecycle. C is the
// config type.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger
	// Metrics is set once telemetry started. It is nil when metric export is
	// disabled; a nil *Metrics records nothing.
	Metrics *observability.Metrics
	Summary *Summary

	gracefulTimeout time.Duration
	signals         bool
	onConfigure     []func(ctx context.Context, app *App[C]) error
	onStart         []Hook
	onStop          []Hook
}

// NewApp applies the config defaults, validates the config and initializes
// the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := cfg.GetServiceConfig()

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Summary:         NewSummary(base.Name, base.Version),
		gracefulTimeout: 15 * time.Second,
		signals:         true,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.signals != nil {
		app.signals = *o.signals
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	return app, nil
}

// OnConfigure registers a callback that runs after telemetry started and
// before the task. Use it to build the engine from a.Cfg.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// RunTask starts the app, runs task and shuts down. The task context is
// cancelled on SIGINT or SIGTERM. The task's error takes precedence over
// shutdown errors.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	startErr := a.startup(ctx)
	if startErr != nil {
		if stopErr := a.stop(); stopErr != nil {
			a.Logger.WithError(stopErr).Warn("shutdown after failed startup")
		}
		return startErr
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.signals {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case sig := <-sigCh:
				a.Logger.Warn("received signal, cancelling run", logger.Fields("signal", sig.String()))
				cancel()
			case <-taskCtx.Done():
			}
		}()
	}

	taskErr := task(taskCtx)
	a.Summary.Display(a.Logger)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Debug("starting", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.startTelemetry(ctx); err != nil {
		return err
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return errors.Wrap(err).WithDetail("stage", "start")
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	a.Summary.SetStartupDuration(time.Since(start))
	return nil
}

// stop runs the stop hooks newest first within the graceful timeout. Every
// hook runs; the first error is returned.
func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var first error
	for _, h := range slices.Backward(a.onStop) {
		if err := h(ctx); err != nil {
			a.Logger.WithError(err).Error("stop hook failed")
			if first == nil {
				first = err
			}
		}
	}
	a.onStop = nil
	return first
}
