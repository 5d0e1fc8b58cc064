package modules

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
	"github.com/kbukum/docflow/errors"
)

// DefaultFingerprintKey is the metadata key Fingerprint writes by default.
const DefaultFingerprintKey = "fingerprint"

// Fingerprint stores a hex BLAKE2b digest of each document's content and
// metadata under a metadata key. Documents with identical content and
// metadata get identical fingerprints.
type Fingerprint struct {
	key  string
	size int
}

var _ engine.Module = (*Fingerprint)(nil)

// NewFingerprint creates a 256-bit Fingerprint writing to key, or to
// DefaultFingerprintKey when key is empty.
func NewFingerprint(key string) *Fingerprint {
	if key == "" {
		key = DefaultFingerprintKey
	}
	return &Fingerprint{key: key, size: blake2b.Size256}
}

// WithSize selects the digest size in bytes: 32 or 64.
func (m *Fingerprint) WithSize(size int) (*Fingerprint, error) {
	if size != blake2b.Size256 && size != blake2b.Size {
		return nil, errors.InvalidInput("size", fmt.Sprintf("digest size must be %d or %d", blake2b.Size256, blake2b.Size))
	}
	m.size = size
	return m, nil
}

func (m *Fingerprint) Name() string { return "fingerprint" }

func (m *Fingerprint) Execute(ctx context.Context, _ engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	out := make([]document.Document, len(inputs))
	for i, d := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sum, err := m.Sum(d)
		if err != nil {
			return nil, err
		}
		out[i] = document.Derive(d, d.Content(), map[string]any{m.key: sum})
	}
	return out, nil
}

// Sum returns the fingerprint of d. A previous fingerprint under the same
// key is not part of the digest.
func (m *Fingerprint) Sum(d document.Document) (string, error) {
	h, err := m.newHash()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(h, "%d:%s", len(d.Content()), d.Content())
	for _, k := range d.Keys() {
		if k == m.key {
			continue
		}
		v, _ := d.Lookup(k)
		fmt.Fprintf(h, "\x00%s=%v", k, v)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (m *Fingerprint) newHash() (hash.Hash, error) {
	if m.size == blake2b.Size {
		return blake2b.New512(nil)
	}
	return blake2b.New256(nil)
}
