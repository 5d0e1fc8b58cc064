package main

import (
	"github.com/kbukum/docflow/config"
	"github.com/kbukum/docflow/engine"
	"github.com/kbukum/docflow/observability"
	"github.com/kbukum/docflow/validation"
	"github.com/kbukum/docflow/version"
)

const serviceName = "docflow"

// Config is the docflow configuration file.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Engine               engine.Config              `yaml:"engine" mapstructure:"engine"`
	Tracing              observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics              observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Engine.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return validation.Validate(&c.Tracing)
}

func (c *Config) TracingConfig() *observability.TracerConfig { return &c.Tracing }
func (c *Config) MetricsConfig() *observability.MeterConfig  { return &c.Metrics }

func loadConfig(opts *rootOptions) (*Config, error) {
	var loaderOpts []config.LoaderOption
	loaderOpts = append(loaderOpts, config.WithDefaults(map[string]any{
		"name":    serviceName,
		"version": version.Get().Short(),
	}))
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.configFile))
	}

	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, loaderOpts...); err != nil {
		return nil, err
	}
	opts.apply(&cfg)
	return &cfg, nil
}
