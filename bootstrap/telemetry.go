package bootstrap

import (
	"context"

	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/observability"
)

// startTelemetry initializes the enabled tracer and meter providers of a
// TelemetryConfig and registers their shutdown as stop hooks.
func (a *App[C]) startTelemetry(ctx context.Context) error {
	tc, ok := any(a.Cfg).(TelemetryConfig)
	if !ok {
		return nil
	}
	base := a.Cfg.GetServiceConfig()

	if tracing := tc.TracingConfig(); tracing != nil && tracing.Enabled {
		fillService(&tracing.ServiceName, &tracing.ServiceVersion, &tracing.Environment, base.Name, base.Version, base.Environment)
		tracing.ApplyDefaults()
		tp, err := observability.InitTracer(ctx, tracing)
		if err != nil {
			return errors.Internal(err).WithDetail("stage", "tracing")
		}
		a.OnStop(tp.Shutdown)
	}

	if metrics := tc.MetricsConfig(); metrics != nil && metrics.Enabled {
		fillService(&metrics.ServiceName, &metrics.ServiceVersion, &metrics.Environment, base.Name, base.Version, base.Environment)
		metrics.ApplyDefaults()
		mp, err := observability.InitMeter(ctx, metrics)
		if err != nil {
			return errors.Internal(err).WithDetail("stage", "metrics")
		}
		a.OnStop(mp.Shutdown)
		m, err := observability.NewMetrics(mp.Meter(meterName))
		if err != nil {
			return errors.Internal(err).WithDetail("stage", "metrics")
		}
		a.Metrics = m
	}
	return nil
}

func fillService(name, version, env *string, baseName, baseVersion, baseEnv string) {
	if *name == "" {
		*name = baseName
	}
	if *version == "" {
		*version = baseVersion
	}
	if *env == "" {
		*env = baseEnv
	}
}
