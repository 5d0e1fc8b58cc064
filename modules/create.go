package modules

import (
	"context"
	"maps"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
)

// Create outputs new documents in place of its inputs.
type Create struct {
	contents []string
	metadata map[string]any
}

var _ engine.Module = (*Create)(nil)

// NewCreate creates one document per content string, each carrying
// metadata.
func NewCreate(metadata map[string]any, contents ...string) *Create {
	return &Create{contents: contents, metadata: maps.Clone(metadata)}
}

func (m *Create) Name() string { return "create" }

func (m *Create) Execute(context.Context, engine.ExecutionContext, []document.Document) ([]document.Document, error) {
	out := make([]document.Document, len(m.contents))
	for i, c := range m.contents {
		out[i] = document.New(c, m.metadata)
	}
	return out, nil
}

// SetMetadata derives every input with additional metadata.
type SetMetadata struct {
	values map[string]any
}

var _ engine.Module = (*SetMetadata)(nil)

// NewSetMetadata creates a SetMetadata module.
func NewSetMetadata(values map[string]any) *SetMetadata {
	return &SetMetadata{values: maps.Clone(values)}
}

func (m *SetMetadata) Name() string { return "metadata" }

func (m *SetMetadata) Execute(_ context.Context, _ engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	out := make([]document.Document, len(inputs))
	for i, d := range inputs {
		out[i] = document.Derive(d, d.Content(), m.values)
	}
	return out, nil
}
