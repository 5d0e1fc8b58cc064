package modules

import (
	"context"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
)

// DocumentFunc maps one document to any number of documents.
type DocumentFunc func(ctx context.Context, ec engine.ExecutionContext, doc document.Document) ([]document.Document, error)

// ContextFunc produces documents once per execution.
type ContextFunc func(ctx context.Context, ec engine.ExecutionContext) ([]document.Document, error)

// Execute runs an inline function as a module.
type Execute struct {
	perDocument DocumentFunc
	perContext  ContextFunc
}

var _ engine.Module = (*Execute)(nil)

// NewExecute calls fn for every input document and returns the
// concatenated results. A nil result drops the document.
func NewExecute(fn DocumentFunc) *Execute {
	return &Execute{perDocument: fn}
}

// NewExecuteContext calls fn once and returns its result in place of the
// inputs.
func NewExecuteContext(fn ContextFunc) *Execute {
	return &Execute{perContext: fn}
}

func (m *Execute) Name() string { return "execute" }

func (m *Execute) Execute(ctx context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	if m.perContext != nil {
		return m.perContext(ctx, ec)
	}
	if m.perDocument == nil {
		return inputs, nil
	}
	var out []document.Document
	for _, d := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs, err := m.perDocument(ctx, ec, d)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

// Concat runs its modules over the inputs and appends their output to the
// inputs.
type Concat struct {
	modules []engine.Module
}

var _ engine.Module = (*Concat)(nil)

// NewConcat creates a Concat over modules.
func NewConcat(modules ...engine.Module) *Concat {
	return &Concat{modules: modules}
}

func (m *Concat) Name() string { return "concat" }

func (m *Concat) Execute(ctx context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	out, err := ec.ExecuteModules(ctx, m.modules, inputs)
	if err != nil {
		return nil, err
	}
	return append(append(make([]document.Document, 0, len(inputs)+len(out)), inputs...), out...), nil
}

// Filter keeps the documents pred matches.
type Filter struct {
	pred DocumentPredicate
}

var _ engine.Module = (*Filter)(nil)

// NewFilter creates a Filter.
func NewFilter(pred DocumentPredicate) *Filter {
	return &Filter{pred: pred}
}

// Discard drops every input document.
func Discard() engine.Module {
	return NewFilter(func(context.Context, engine.ExecutionContext, document.Document) (bool, error) { return false, nil })
}

func (m *Filter) Name() string { return "filter" }

func (m *Filter) Execute(ctx context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	if m.pred == nil {
		return inputs, nil
	}
	var out []document.Document
	for _, d := range inputs {
		ok, err := m.pred(ctx, ec, d)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}
