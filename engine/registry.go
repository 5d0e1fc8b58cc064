package engine

import (
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/docflow/errors"
)

// ModuleFactory creates a module from definition parameters.
type ModuleFactory func(params map[string]any) (Module, error)

// Registry provides named module factories for building pipelines from
// definitions. Names are matched without regard to case.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ModuleFactory
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ModuleFactory)}
}

// Register adds a factory. A later registration replaces an earlier one.
func (r *Registry) Register(name string, factory ModuleFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = factory
}

// Get retrieves a factory by name.
func (r *Registry) Get(name string) (ModuleFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[strings.ToLower(name)]
	return f, ok
}

// List returns sorted names of all registered factories.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the module registered under name.
func (r *Registry) Build(name string, params map[string]any) (Module, error) {
	f, ok := r.Get(name)
	if !ok {
		return nil, errors.NotFound("module", name)
	}
	m, err := f(params)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.InvalidInput(name, err.Error()).WithCause(err)
	}
	return m, nil
}
