package engine

import (
	"github.com/kbukum/docflow/validation"
)

// Config configures pipeline execution.
type Config struct {
	// MaxParallel limits concurrently executing phases (0 = unlimited).
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel" validate:"gte=0"`
	// Definitions is the path of a YAML pipeline definition file.
	Definitions string `yaml:"definitions" mapstructure:"definitions"`
	// Pipelines lists the pipelines to run. Empty means the default set.
	Pipelines []string `yaml:"pipelines" mapstructure:"pipelines" validate:"dive,required"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.Definitions == "" {
		c.Definitions = "pipelines.yml"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
