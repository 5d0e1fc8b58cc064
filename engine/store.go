package engine

import (
	"slices"
	"strings"
	"sync"

	"github.com/kbukum/docflow/document"
)

// Store holds, per pipeline, the documents of its most recently completed
// phase. Set replaces the whole entry for a pipeline, so readers observe
// either the previous or the new output and never a partial one.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]document.Document
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string][]document.Document)}
}

// Set replaces the documents recorded for pipeline.
func (s *Store) Set(pipeline string, docs []document.Document) {
	entry := slices.Clip(slices.Clone(docs))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[strings.ToLower(pipeline)] = entry
}

// Get returns the documents recorded for pipeline. The returned slice must
// not be modified.
func (s *Store) Get(pipeline string) ([]document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, ok := s.docs[strings.ToLower(pipeline)]
	return docs, ok
}

// Outputs is the final document set of each pipeline that ran.
type Outputs struct {
	names []string
	docs  map[string][]document.Document
}

func newOutputs(store *Store, pipelines []string) Outputs {
	out := Outputs{docs: make(map[string][]document.Document, len(pipelines))}
	for _, name := range pipelines {
		docs, ok := store.Get(name)
		if !ok {
			continue
		}
		out.names = append(out.names, name)
		out.docs[strings.ToLower(name)] = docs
	}
	return out
}

// Get returns the documents of pipeline, matching its name without regard
// to case.
func (o Outputs) Get(pipeline string) []document.Document {
	return slices.Clone(o.docs[strings.ToLower(pipeline)])
}

// Pipelines returns the names of the pipelines that recorded output, in
// declaration order.
func (o Outputs) Pipelines() []string {
	return slices.Clone(o.names)
}

// Len returns the number of pipelines with output.
func (o Outputs) Len() int {
	return len(o.names)
}
