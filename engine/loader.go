package engine

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/validation"
)

// Definitions is the declarative form of a pipeline set.
//
//	pipelines:
//	  - name: Data
//	    process:
//	      - module: fingerprint
//	  - name: Pages
//	    dependencies: [Data]
//	    trigger: default
//	    post_process:
//	      - module: from_pipelines
//	        params: {pipelines: [Data], keep_inputs: true}
type Definitions struct {
	Pipelines []PipelineDef `yaml:"pipelines" validate:"required,min=1,dive"`
}

// PipelineDef defines one pipeline.
type PipelineDef struct {
	Name         string      `yaml:"name" validate:"required"`
	Trigger      string      `yaml:"trigger"`
	Isolated     bool        `yaml:"isolated"`
	Dependencies []string    `yaml:"dependencies" validate:"dive,required"`
	Input        []ModuleDef `yaml:"input" validate:"dive"`
	Process      []ModuleDef `yaml:"process" validate:"dive"`
	PostProcess  []ModuleDef `yaml:"post_process" validate:"dive"`
	Output       []ModuleDef `yaml:"output" validate:"dive"`
}

// ModuleDef references a registered module factory.
type ModuleDef struct {
	Module string         `yaml:"module" validate:"required"`
	Params map[string]any `yaml:"params"`
}

func (d *PipelineDef) modules(phase Phase) []ModuleDef {
	switch phase {
	case PhaseInput:
		return d.Input
	case PhaseProcess:
		return d.Process
	case PhasePostProcess:
		return d.PostProcess
	case PhaseOutput:
		return d.Output
	}
	return nil
}

// LoadDefinitions reads and validates a YAML definition file.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NotFound("definitions file", path).WithCause(err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr.WithDetail("path", path)
		}
		return nil, err
	}
	return defs, nil
}

// ParseDefinitions parses and validates YAML definitions.
func ParseDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, errors.InvalidFormat("definitions", "YAML").WithCause(err)
	}
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return &defs, nil
}

// Validate checks the definitions' structure. Dependency rules are checked
// later by BuildGraph.
func (d *Definitions) Validate() error {
	if err := validation.Validate(d); err != nil {
		return err
	}
	names := make([]string, len(d.Pipelines))
	v := validation.New()
	for i, p := range d.Pipelines {
		names[i] = p.Name
		v.OneOf(fmt.Sprintf("pipelines[%d].trigger", i), p.Trigger, TriggerNames())
	}
	v.UniqueNames("pipelines", names)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Resolve builds a pipeline set, creating every module through reg.
func (d *Definitions) Resolve(reg *Registry) (*Pipelines, error) {
	pipelines := NewPipelines()
	for _, def := range d.Pipelines {
		trigger, err := ParseTrigger(def.Trigger)
		if err != nil {
			return nil, err
		}
		p := &Pipeline{
			Dependencies: append([]string(nil), def.Dependencies...),
			Trigger:      trigger,
			Isolated:     def.Isolated,
		}
		for _, phase := range Phases {
			for _, md := range def.modules(phase) {
				m, err := reg.Build(md.Module, md.Params)
				if err != nil {
					if appErr, ok := errors.AsAppError(err); ok {
						return nil, appErr.WithDetail("pipeline", def.Name).WithDetail("phase", phase.String())
					}
					return nil, err
				}
				p.Append(phase, m)
			}
		}
		if err := pipelines.Add(def.Name, p); err != nil {
			return nil, err
		}
	}
	return pipelines, nil
}
