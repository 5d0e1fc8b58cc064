package document

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Document is an immutable value with a stable identity.
type Document interface {
	// ID is unique per document and survives every hand-off between phases.
	ID() uuid.UUID
	Content() string
	// Lookup returns the metadata value stored under key.
	Lookup(key string) (any, bool)
	// Keys returns the metadata keys in sorted order.
	Keys() []string
}

type doc struct {
	id       uuid.UUID
	content  string
	metadata map[string]any
}

// New creates a document with a fresh identity. The metadata map is copied.
func New(content string, metadata map[string]any) Document {
	return NewWithID(uuid.New(), content, metadata)
}

// NewWithID creates a document with a caller-chosen identity. Two documents
// sharing an ID are treated as the same document by Distinct.
func NewWithID(id uuid.UUID, content string, metadata map[string]any) Document {
	return &doc{id: id, content: content, metadata: maps.Clone(metadata)}
}

// Derive creates a new document from parent. The result gets a fresh
// identity and parent's metadata overlaid with metadata.
func Derive(parent Document, content string, metadata map[string]any) Document {
	merged := make(map[string]any, len(metadata))
	if parent != nil {
		for _, k := range parent.Keys() {
			v, _ := parent.Lookup(k)
			merged[k] = v
		}
	}
	maps.Copy(merged, metadata)
	return &doc{id: uuid.New(), content: content, metadata: merged}
}

func (d *doc) ID() uuid.UUID   { return d.id }
func (d *doc) Content() string { return d.content }

func (d *doc) Lookup(key string) (any, bool) {
	v, ok := d.metadata[key]
	return v, ok
}

func (d *doc) Keys() []string {
	return slices.Sorted(maps.Keys(d.metadata))
}

func (d *doc) String() string {
	return d.id.String()
}

// Distinct removes documents whose identity was already seen, keeping the
// first occurrence and the original order. Nil entries are dropped.
func Distinct(docs []Document) []Document {
	if len(docs) == 0 {
		return docs
	}
	seen := make(map[uuid.UUID]struct{}, len(docs))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		if _, ok := seen[d.ID()]; ok {
			continue
		}
		seen[d.ID()] = struct{}{}
		out = append(out, d)
	}
	return out
}

// Contents returns the content of every document in order.
func Contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content()
	}
	return out
}
