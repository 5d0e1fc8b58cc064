package engine

import (
	"strings"
	"sync"

	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/util"
)

// Pipeline is a named unit of work: one ordered module list per phase plus
// the pipelines it must run after.
type Pipeline struct {
	// Dependencies names the pipelines this pipeline runs after. Names are
	// matched without regard to case.
	Dependencies []string
	// Trigger decides when the pipeline takes part in a run.
	Trigger Trigger
	// Isolated pipelines may neither declare nor be the target of a
	// dependency, and cannot see or be seen by other pipelines.
	Isolated bool

	InputModules       []Module
	ProcessModules     []Module
	PostProcessModules []Module
	OutputModules      []Module
}

// Modules returns the module list for phase.
func (p *Pipeline) Modules(phase Phase) []Module {
	switch phase {
	case PhaseInput:
		return p.InputModules
	case PhaseProcess:
		return p.ProcessModules
	case PhasePostProcess:
		return p.PostProcessModules
	case PhaseOutput:
		return p.OutputModules
	}
	return nil
}

// Append adds modules to the end of phase's module list.
func (p *Pipeline) Append(phase Phase, modules ...Module) *Pipeline {
	switch phase {
	case PhaseInput:
		p.InputModules = append(p.InputModules, modules...)
	case PhaseProcess:
		p.ProcessModules = append(p.ProcessModules, modules...)
	case PhasePostProcess:
		p.PostProcessModules = append(p.PostProcessModules, modules...)
	case PhaseOutput:
		p.OutputModules = append(p.OutputModules, modules...)
	}
	return p
}

// DependsOn adds dependency names.
func (p *Pipeline) DependsOn(names ...string) *Pipeline {
	p.Dependencies = append(p.Dependencies, names...)
	return p
}

// Pipelines is an ordered set of named pipelines. Names are unique without
// regard to case and keep the order in which they were added. It is safe for
// concurrent use.
type Pipelines struct {
	mu    sync.RWMutex
	items *util.NameMap[*Pipeline]
}

// NewPipelines creates an empty collection.
func NewPipelines() *Pipelines {
	return &Pipelines{items: util.NewNameMap[*Pipeline]()}
}

func (ps *Pipelines) lazyInit() {
	if ps.items == nil {
		ps.items = util.NewNameMap[*Pipeline]()
	}
}

// Add registers p under name.
// Returns INVALID_INPUT for an empty name or nil pipeline and ALREADY_EXISTS
// when the name is taken.
func (ps *Pipelines) Add(name string, p *Pipeline) error {
	if strings.TrimSpace(name) == "" {
		return errors.InvalidInput("name", "pipeline name must not be empty")
	}
	if p == nil {
		return errors.InvalidInput("pipeline", "pipeline must not be nil")
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.lazyInit()
	if !ps.items.Add(name, p) {
		return errors.AlreadyExists("pipeline", name)
	}
	return nil
}

// Get returns the pipeline registered under name.
func (ps *Pipelines) Get(name string) (*Pipeline, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if ps.items == nil {
		return nil, false
	}
	return ps.items.Get(name)
}

// Remove deletes the pipeline registered under name.
func (ps *Pipelines) Remove(name string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.items == nil {
		return false
	}
	return ps.items.Remove(name)
}

// Names returns pipeline names in the order they were added.
func (ps *Pipelines) Names() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if ps.items == nil {
		return nil
	}
	return ps.items.Names()
}

// Len returns the number of pipelines.
func (ps *Pipelines) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if ps.items == nil {
		return 0
	}
	return ps.items.Len()
}

// snapshot returns names and definitions in declaration order.
func (ps *Pipelines) snapshot() ([]string, []*Pipeline) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if ps.items == nil {
		return nil, nil
	}
	return ps.items.Names(), ps.items.Values()
}
