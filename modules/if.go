package modules

import (
	"context"
	"reflect"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
)

// DocumentPredicate decides per document.
type DocumentPredicate func(ctx context.Context, ec engine.ExecutionContext, doc document.Document) (bool, error)

// ContextPredicate decides once per execution for every input document.
type ContextPredicate func(ctx context.Context, ec engine.ExecutionContext) (bool, error)

type branch struct {
	doc     DocumentPredicate
	context ContextPredicate
	modules []engine.Module
}

func (b *branch) split(ctx context.Context, ec engine.ExecutionContext, docs []document.Document) (matched, unmatched []document.Document, err error) {
	if b.doc == nil {
		ok := true
		if b.context != nil {
			if ok, err = b.context(ctx, ec); err != nil {
				return nil, nil, err
			}
		}
		if ok {
			return docs, nil, nil
		}
		return nil, docs, nil
	}
	for _, d := range docs {
		ok, err := b.doc(ctx, ec, d)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			matched = append(matched, d)
		} else {
			unmatched = append(unmatched, d)
		}
	}
	return matched, unmatched, nil
}

// If routes each input document to the first branch whose predicate
// matches. Branch outputs are returned in branch order followed by the
// documents no branch matched.
type If struct {
	branches      []branch
	dropUnmatched bool
}

var _ engine.Module = (*If)(nil)

// NewIf runs modules over the documents pred matches.
func NewIf(pred DocumentPredicate, modules ...engine.Module) *If {
	return (&If{}).ElseIf(pred, modules...)
}

// NewIfContext runs modules over every document when pred holds.
func NewIfContext(pred ContextPredicate, modules ...engine.Module) *If {
	return (&If{}).ElseIfContext(pred, modules...)
}

// ElseIf adds a branch for documents no earlier branch matched.
func (m *If) ElseIf(pred DocumentPredicate, modules ...engine.Module) *If {
	if pred == nil {
		pred = func(context.Context, engine.ExecutionContext, document.Document) (bool, error) { return false, nil }
	}
	m.branches = append(m.branches, branch{doc: pred, modules: modules})
	return m
}

// ElseIfContext adds a branch that takes every remaining document when
// pred holds.
func (m *If) ElseIfContext(pred ContextPredicate, modules ...engine.Module) *If {
	if pred == nil {
		pred = func(context.Context, engine.ExecutionContext) (bool, error) { return false, nil }
	}
	m.branches = append(m.branches, branch{context: pred, modules: modules})
	return m
}

// Else adds a branch taking every remaining document.
func (m *If) Else(modules ...engine.Module) *If {
	m.branches = append(m.branches, branch{modules: modules})
	return m
}

// WithoutUnmatchedDocuments drops the documents no branch matched instead
// of passing them through.
func (m *If) WithoutUnmatchedDocuments() *If {
	m.dropUnmatched = true
	return m
}

func (m *If) Name() string { return "if" }

func (m *If) Execute(ctx context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	var results []document.Document
	remaining := inputs
	for i := range m.branches {
		if len(remaining) == 0 {
			break
		}
		b := &m.branches[i]
		matched, unmatched, err := b.split(ctx, ec, remaining)
		if err != nil {
			return nil, err
		}
		if len(matched) > 0 {
			out, err := ec.ExecuteModules(ctx, b.modules, matched)
			if err != nil {
				return nil, err
			}
			results = append(results, out...)
		}
		remaining = unmatched
	}
	if !m.dropUnmatched {
		results = append(results, remaining...)
	}
	return results, nil
}

// ContentEquals matches documents whose content is s.
func ContentEquals(s string) DocumentPredicate {
	return func(_ context.Context, _ engine.ExecutionContext, doc document.Document) (bool, error) {
		return doc.Content() == s, nil
	}
}

// MetadataEquals matches documents whose metadata key holds value.
func MetadataEquals(key string, value any) DocumentPredicate {
	return func(_ context.Context, _ engine.ExecutionContext, doc document.Document) (bool, error) {
		v, ok := doc.Lookup(key)
		return ok && reflect.DeepEqual(v, value), nil
	}
}

// HasMetadata matches documents carrying key.
func HasMetadata(key string) DocumentPredicate {
	return func(_ context.Context, _ engine.ExecutionContext, doc document.Document) (bool, error) {
		_, ok := doc.Lookup(key)
		return ok, nil
	}
}
