package document

import (
	"fmt"

	"github.com/kbukum/docflow/errors"
)

// Get reads a typed metadata value from d.
// Returns a NOT_FOUND error if the key is missing and an INVALID_FORMAT
// error if the stored value has a different type.
func Get[T any](d Document, key string) (T, error) {
	var zero T
	raw, ok := d.Lookup(key)
	if !ok {
		return zero, errors.NotFound("metadata key", key)
	}
	val, ok := raw.(T)
	if !ok {
		return zero, errors.InvalidFormat(key, fmt.Sprintf("%T, got %T", zero, raw))
	}
	return val, nil
}

// GetOr reads a typed metadata value from d, falling back to def when the
// key is missing or holds another type.
func GetOr[T any](d Document, key string, def T) T {
	v, err := Get[T](d, key)
	if err != nil {
		return def
	}
	return v
}
