package bootstrap

import (
	"github.com/kbukum/docflow/config"
	"github.com/kbukum/docflow/observability"
)

// Config is the constraint for application configuration types. Structs
// embedding config.ServiceConfig satisfy it through promoted methods.
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Engine engine.Config `yaml:"engine" mapstructure:"engine"`
//	}
//
//	app, err := bootstrap.NewApp(&cfg)
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

// TelemetryConfig is implemented by configs that carry tracing and metric
// settings. NewApp initializes the enabled providers for such configs.
type TelemetryConfig interface {
	TracingConfig() *observability.TracerConfig
	MetricsConfig() *observability.MeterConfig
}
