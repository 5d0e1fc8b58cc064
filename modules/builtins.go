package modules

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/resilience"
)

type createParams struct {
	Contents []string       `mapstructure:"contents" validate:"required,min=1"`
	Metadata map[string]any `mapstructure:"metadata"`
}

type readParams struct {
	Pipelines  []string `mapstructure:"pipelines" validate:"required,min=1,dive,required"`
	KeepInputs bool     `mapstructure:"keep_inputs"`
}

type exceptParams struct {
	Pipeline   string `mapstructure:"pipeline" validate:"required"`
	KeepInputs bool   `mapstructure:"keep_inputs"`
}

type allParams struct {
	KeepInputs bool `mapstructure:"keep_inputs"`
}

type metadataParams struct {
	Values map[string]any `mapstructure:"values" validate:"required,min=1"`
}

type whereParams struct {
	Key   string `mapstructure:"key" validate:"required"`
	Value any    `mapstructure:"value"`
}

type fingerprintParams struct {
	Key  string `mapstructure:"key"`
	Size int    `mapstructure:"size" validate:"omitempty,oneof=32 64"`
}

type logParams struct {
	Message string `mapstructure:"message"`
	Level   string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

type execParams struct {
	Binary      string        `mapstructure:"binary" validate:"required"`
	Args        []string      `mapstructure:"args"`
	Dir         string        `mapstructure:"dir"`
	Env         []string      `mapstructure:"env"`
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gte=0"`
	Trim        bool          `mapstructure:"trim"`
}

type moduleRef struct {
	Module string         `mapstructure:"module" validate:"required"`
	Params map[string]any `mapstructure:"params"`
}

type retryParams struct {
	Modules                []moduleRef `mapstructure:"modules" validate:"required,min=1,dive"`
	resilience.RetryConfig `mapstructure:",squash"`
}

// RegisterBuiltins registers the modules usable from a definitions file.
func RegisterBuiltins(reg *engine.Registry) {
	reg.Register("create", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[createParams]("create", params)
		if err != nil {
			return nil, err
		}
		return NewCreate(p.Metadata, p.Contents...), nil
	})
	reg.Register("from_pipelines", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[readParams]("from_pipelines", params)
		if err != nil {
			return nil, err
		}
		return keep(FromPipelines(p.Pipelines...), p.KeepInputs), nil
	})
	reg.Register("except_pipeline", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[exceptParams]("except_pipeline", params)
		if err != nil {
			return nil, err
		}
		return keep(ExceptPipeline(p.Pipeline), p.KeepInputs), nil
	})
	reg.Register("all_pipelines", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[allParams]("all_pipelines", params)
		if err != nil {
			return nil, err
		}
		return keep(AllPipelines(), p.KeepInputs), nil
	})
	reg.Register("set_metadata", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[metadataParams]("set_metadata", params)
		if err != nil {
			return nil, err
		}
		return NewSetMetadata(p.Values), nil
	})
	reg.Register("where", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[whereParams]("where", params)
		if err != nil {
			return nil, err
		}
		if p.Value == nil {
			return NewFilter(HasMetadata(p.Key)), nil
		}
		return NewFilter(MetadataEquals(p.Key, p.Value)), nil
	})
	reg.Register("fingerprint", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[fingerprintParams]("fingerprint", params)
		if err != nil {
			return nil, err
		}
		m := NewFingerprint(p.Key)
		if p.Size != 0 {
			return m.WithSize(p.Size)
		}
		return m, nil
	})
	reg.Register("log", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[logParams]("log", params)
		if err != nil {
			return nil, err
		}
		return NewLog(p.Level, p.Message), nil
	})
	reg.Register("exec", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[execParams]("exec", params)
		if err != nil {
			return nil, err
		}
		m := NewExec(p.Binary, p.Args...).WithDir(p.Dir).WithEnv(p.Env...).WithGracePeriod(p.GracePeriod)
		if p.Trim {
			m.TrimOutput()
		}
		return m, nil
	})
	reg.Register("retry", func(params map[string]any) (engine.Module, error) {
		p, err := decodeParams[retryParams]("retry", params)
		if err != nil {
			return nil, err
		}
		inner := make([]engine.Module, 0, len(p.Modules))
		for _, ref := range p.Modules {
			m, err := reg.Build(ref.Module, ref.Params)
			if err != nil {
				return nil, err
			}
			inner = append(inner, m)
		}
		return NewRetry(inner...).WithConfig(p.RetryConfig), nil
	})
}

func keep(m *ReadPipelines, inputs bool) *ReadPipelines {
	if inputs {
		return m.KeepInputs()
	}
	return m
}

// Log writes one line per execution to the module logger and passes its
// inputs through.
type Log struct {
	level   string
	message string
}

var _ engine.Module = (*Log)(nil)

// NewLog creates a Log module. An empty level logs at info.
func NewLog(level, message string) *Log {
	if message == "" {
		message = "documents"
	}
	return &Log{level: strings.ToLower(level), message: message}
}

func (m *Log) Name() string { return "log" }

func (m *Log) Execute(_ context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	fields := logger.Fields(logger.FieldDocuments, len(inputs))
	log := ec.Logger()
	switch m.level {
	case "debug":
		log.Debug(m.message, fields)
	case "warn":
		log.Warn(m.message, fields)
	case "error":
		log.Error(m.message, fields)
	default:
		log.Info(m.message, fields)
	}
	return inputs, nil
}
