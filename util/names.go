package util

import "strings"

// NameMap maps names to values. Lookups ignore case; iteration follows
// insertion order and reports names with the casing they were added with.
// A NameMap is not safe for concurrent use.
type NameMap[V any] struct {
	index  map[string]int
	names  []string
	values []V
}

// NewNameMap creates an empty NameMap.
func NewNameMap[V any]() *NameMap[V] {
	return &NameMap[V]{index: make(map[string]int)}
}

func fold(name string) string { return strings.ToLower(name) }

// Add inserts name. It returns false and leaves the map unchanged if a name
// equal under case folding is already present.
func (m *NameMap[V]) Add(name string, v V) bool {
	key := fold(name)
	if _, ok := m.index[key]; ok {
		return false
	}
	m.index[key] = len(m.names)
	m.names = append(m.names, name)
	m.values = append(m.values, v)
	return true
}

// Get returns the value stored under name.
func (m *NameMap[V]) Get(name string) (V, bool) {
	i, ok := m.index[fold(name)]
	if !ok {
		var zero V
		return zero, false
	}
	return m.values[i], true
}

// Has reports whether name is present.
func (m *NameMap[V]) Has(name string) bool {
	_, ok := m.index[fold(name)]
	return ok
}

// Canonical returns name as it was originally added.
func (m *NameMap[V]) Canonical(name string) (string, bool) {
	i, ok := m.index[fold(name)]
	if !ok {
		return "", false
	}
	return m.names[i], true
}

// IndexOf returns the insertion position of name, or -1.
func (m *NameMap[V]) IndexOf(name string) int {
	if i, ok := m.index[fold(name)]; ok {
		return i
	}
	return -1
}

// Remove deletes name and reports whether it was present.
func (m *NameMap[V]) Remove(name string) bool {
	i, ok := m.index[fold(name)]
	if !ok {
		return false
	}
	m.names = append(m.names[:i], m.names[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	delete(m.index, fold(name))
	for j := i; j < len(m.names); j++ {
		m.index[fold(m.names[j])] = j
	}
	return true
}

// Len returns the number of entries.
func (m *NameMap[V]) Len() int { return len(m.names) }

// Names returns a copy of the names in insertion order.
func (m *NameMap[V]) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Values returns a copy of the values in insertion order.
func (m *NameMap[V]) Values() []V {
	out := make([]V, len(m.values))
	copy(out, m.values)
	return out
}

// EqualName reports whether a and b name the same thing.
func EqualName(a, b string) bool {
	return strings.EqualFold(a, b)
}
