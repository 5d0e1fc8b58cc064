package modules

import (
	"context"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
)

type readMode int

const (
	readNamed readMode = iota
	readAll
	readExcept
)

// ReadPipelines outputs documents of other pipelines through the
// execution context's DocumentCollection, so the phase visibility rules
// apply. By default the inputs are replaced.
type ReadPipelines struct {
	mode       readMode
	pipelines  []string
	keepInputs bool
}

var _ engine.Module = (*ReadPipelines)(nil)

// FromPipelines reads the documents of the named pipelines, in order.
func FromPipelines(names ...string) *ReadPipelines {
	return &ReadPipelines{mode: readNamed, pipelines: names}
}

// AllPipelines reads every visible document.
func AllPipelines() *ReadPipelines {
	return &ReadPipelines{mode: readAll}
}

// ExceptPipeline reads every visible document outside the named pipeline.
func ExceptPipeline(name string) *ReadPipelines {
	return &ReadPipelines{mode: readExcept, pipelines: []string{name}}
}

// KeepInputs outputs the inputs followed by the read documents.
func (m *ReadPipelines) KeepInputs() *ReadPipelines {
	m.keepInputs = true
	return m
}

func (m *ReadPipelines) Name() string { return "read" }

func (m *ReadPipelines) Execute(_ context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	docs, err := m.read(ec.Documents())
	if err != nil {
		return nil, err
	}
	if m.keepInputs {
		docs = append(append([]document.Document(nil), inputs...), docs...)
	}
	return document.Distinct(docs), nil
}

func (m *ReadPipelines) read(c *engine.DocumentCollection) ([]document.Document, error) {
	switch m.mode {
	case readAll:
		return c.All()
	case readExcept:
		return c.ExceptPipeline(m.pipelines[0])
	}
	var docs []document.Document
	for _, name := range m.pipelines {
		out, err := c.FromPipeline(name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, out...)
	}
	return docs, nil
}
