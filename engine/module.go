package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/logger"
)

// Module is the unit of work inside a phase. It consumes the documents
// produced by the previous module and returns the documents for the next.
// Composite modules run nested module lists through
// ExecutionContext.ExecuteModules.
type Module interface {
	Execute(ctx context.Context, ec ExecutionContext, inputs []document.Document) ([]document.Document, error)
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(ctx context.Context, ec ExecutionContext, inputs []document.Document) ([]document.Document, error)

// Execute calls f.
func (f ModuleFunc) Execute(ctx context.Context, ec ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	return f(ctx, ec, inputs)
}

// Named is implemented by modules that report their own name in logs,
// spans and metrics.
type Named interface {
	Name() string
}

// ModuleName returns the name of m: Name() when implemented, otherwise its
// type name.
func ModuleName(m Module) string {
	if n, ok := m.(Named); ok {
		return n.Name()
	}
	name := fmt.Sprintf("%T", m)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ExecutionContext is handed to every module invocation.
type ExecutionContext interface {
	// RunID identifies the engine run.
	RunID() uuid.UUID
	// PipelineName is the name of the executing pipeline.
	PipelineName() string
	// Phase is the executing phase.
	Phase() Phase
	// Documents exposes other pipelines' documents under the visibility
	// rules of the executing phase.
	Documents() *DocumentCollection
	// Logger is tagged with the executing pipeline, phase and module.
	Logger() *logger.Logger
	// ExecuteModules runs modules as a left-to-right fold over inputs,
	// publishing module events for each of them.
	ExecuteModules(ctx context.Context, modules []Module, inputs []document.Document) ([]document.Document, error)
}
