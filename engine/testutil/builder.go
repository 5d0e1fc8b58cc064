package testutil

import (
	"github.com/kbukum/docflow/engine"
)

// PipelineBuilder provides a fluent API for constructing test pipeline sets.
// Phase and option methods apply to the most recently added pipeline.
type PipelineBuilder struct {
	pipelines *engine.Pipelines
	current   *engine.Pipeline
	err       error
}

// NewPipelineBuilder creates a new PipelineBuilder.
func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{pipelines: engine.NewPipelines()}
}

// Pipeline adds a pipeline depending on deps.
func (b *PipelineBuilder) Pipeline(name string, deps ...string) *PipelineBuilder {
	p := (&engine.Pipeline{}).DependsOn(deps...)
	if err := b.pipelines.Add(name, p); err != nil && b.err == nil {
		b.err = err
	}
	b.current = p
	return b
}

// Trigger sets the trigger of the current pipeline.
func (b *PipelineBuilder) Trigger(t engine.Trigger) *PipelineBuilder {
	if b.current != nil {
		b.current.Trigger = t
	}
	return b
}

// Isolated marks the current pipeline isolated.
func (b *PipelineBuilder) Isolated() *PipelineBuilder {
	if b.current != nil {
		b.current.Isolated = true
	}
	return b
}

// Input appends Input modules to the current pipeline.
func (b *PipelineBuilder) Input(modules ...engine.Module) *PipelineBuilder {
	return b.append(engine.PhaseInput, modules)
}

// Process appends Process modules to the current pipeline.
func (b *PipelineBuilder) Process(modules ...engine.Module) *PipelineBuilder {
	return b.append(engine.PhaseProcess, modules)
}

// PostProcess appends PostProcess modules to the current pipeline.
func (b *PipelineBuilder) PostProcess(modules ...engine.Module) *PipelineBuilder {
	return b.append(engine.PhasePostProcess, modules)
}

// Output appends Output modules to the current pipeline.
func (b *PipelineBuilder) Output(modules ...engine.Module) *PipelineBuilder {
	return b.append(engine.PhaseOutput, modules)
}

func (b *PipelineBuilder) append(phase engine.Phase, modules []engine.Module) *PipelineBuilder {
	if b.current != nil {
		b.current.Append(phase, modules...)
	}
	return b
}

// Build returns the constructed pipeline set or the first error raised
// while adding pipelines.
func (b *PipelineBuilder) Build() (*engine.Pipelines, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.pipelines, nil
}

// Engine returns a new engine over the constructed pipeline set.
func (b *PipelineBuilder) Engine(opts ...engine.Option) (*engine.Engine, error) {
	pipelines, err := b.Build()
	if err != nil {
		return nil, err
	}
	e := engine.New(opts...)
	e.Pipelines = pipelines
	return e, nil
}
