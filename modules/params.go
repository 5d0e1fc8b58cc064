package modules

import (
	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/validation"
)

// decodeParams decodes module parameters from a definitions file into a
// tagged struct and validates it.
func decodeParams[T any](module string, params map[string]any) (*T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, errors.Internal(err)
	}
	if err := dec.Decode(params); err != nil {
		return nil, errors.InvalidInput(module, err.Error()).WithCause(err)
	}
	if err := validation.Validate(&out); err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr.WithDetail("module", module)
		}
		return nil, err
	}
	return &out, nil
}
