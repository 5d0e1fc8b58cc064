package config

import (
	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/validation"
)

// Environments accepted by ServiceConfig.
var Environments = []string{"development", "staging", "production"}

// ServiceConfig holds the fields every docflow binary needs. Embed it in
// the binary's own config struct:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Engine engine.Config `yaml:"engine" mapstructure:"engine"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig returns c. It is promoted to embedding structs.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults fills empty fields. Debug is forced on in development and
// lowers the log level to debug.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the service fields and the logging config.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.InvalidInput("logging", err.Error()).WithCause(err)
	}
	return nil
}
