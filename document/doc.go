// Package document defines the immutable unit of content that flows through
// pipeline phases.
//
// A Document carries a stable identity, a string body and read-only
// metadata. Modules never mutate a document; they derive new ones:
//
//	out := document.Derive(in, strings.ToUpper(in.Content()), map[string]any{"upper": true})
//	n, err := document.Get[int](out, "count")
package document
