package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/docflow/logger"
)

// Metric statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// Enabled turns metric export on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// ApplyDefaults fills empty fields from DefaultMeterConfig.
func (c *MeterConfig) ApplyDefaults() {
	d := DefaultMeterConfig(c.ServiceName)
	if c.ServiceVersion == "" {
		c.ServiceVersion = d.ServiceVersion
	}
	if c.Environment == "" {
		c.Environment = d.Environment
	}
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.WithComponent("observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the engine's metric instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	runTotal       metric.Int64Counter
	runDuration    metric.Float64Histogram
	phaseTotal     metric.Int64Counter
	phaseDuration  metric.Float64Histogram
	moduleTotal    metric.Int64Counter
	moduleDuration metric.Float64Histogram
	errorTotal     metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("docflow.run.total",
		metric.WithDescription("Total number of engine runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docflow.run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("docflow.run.duration",
		metric.WithDescription("Duration of engine runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docflow.run.duration histogram: %w", err)
	}

	phaseTotal, err := meter.Int64Counter("docflow.phase.total",
		metric.WithDescription("Total number of executed pipeline phases"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docflow.phase.total counter: %w", err)
	}

	phaseDuration, err := meter.Float64Histogram("docflow.phase.duration",
		metric.WithDescription("Duration of pipeline phases in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docflow.phase.duration histogram: %w", err)
	}

	moduleTotal, err := meter.Int64Counter("docflow.module.total",
		metric.WithDescription("Total number of module executions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docflow.module.total counter: %w", err)
	}

	moduleDuration, err := meter.Float64Histogram("docflow.module.duration",
		metric.WithDescription("Duration of module executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docflow.module.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("docflow.error.total",
		metric.WithDescription("Total errors by type and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docflow.error.total counter: %w", err)
	}

	return &Metrics{
		runTotal:       runTotal,
		runDuration:    runDuration,
		phaseTotal:     phaseTotal,
		phaseDuration:  phaseDuration,
		moduleTotal:    moduleTotal,
		moduleDuration: moduleDuration,
		errorTotal:     errorTotal,
	}, nil
}

// RecordRun records a finished engine run.
func (m *Metrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.runDuration.Record(ctx, duration.Seconds())
}

// RecordPhase records a pipeline phase outcome.
func (m *Metrics) RecordPhase(ctx context.Context, pipeline, phase, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("phase", phase),
		attribute.String("status", status),
	))
	m.phaseDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("phase", phase),
	))
}

// RecordModule records a module execution.
func (m *Metrics) RecordModule(ctx context.Context, module, phase, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.moduleTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("module", module),
		attribute.String("phase", phase),
		attribute.String("status", status),
	))
	m.moduleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("module", module),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
