// Package validation provides input validation for docflow configuration
// and pipeline definition files.
//
// It supports struct tag validation (go-playground/validator) and
// programmatic validation with error collection. Both report failures as
// INVALID_INPUT AppErrors carrying per-field details.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    MaxParallel int `mapstructure:"max_parallel" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.OneOf("trigger", def.Trigger, triggers).UniqueNames("pipelines", names)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
