package engine

import (
	"fmt"
	"strings"

	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/util"
)

// ResolveTriggered returns the pipelines that take part in a run, in
// declaration order.
//
// A nil request selects every Default pipeline. An empty, non-nil request
// selects nothing explicitly. A non-empty request selects the named
// pipelines and fails with INVALID_INPUT for an unknown name. Always pipelines
// are added in every case, and the result is closed over dependencies.
func ResolveTriggered(pipelines *Pipelines, requested []string) ([]string, error) {
	names, defs := pipelines.snapshot()
	index := util.NewNameMap[int]()
	for i, name := range names {
		index.Add(name, i)
	}

	include := make([]bool, len(names))
	var queue []int
	add := func(i int) {
		if !include[i] {
			include[i] = true
			queue = append(queue, i)
		}
	}

	if requested == nil {
		for i, def := range defs {
			if def.Trigger == TriggerDefault {
				add(i)
			}
		}
	}
	for _, name := range requested {
		if strings.TrimSpace(name) == "" {
			return nil, errors.InvalidInput("pipelines", "requested pipeline name must not be empty")
		}
		i, ok := index.Get(name)
		if !ok {
			return nil, errors.InvalidInput("pipelines", fmt.Sprintf("requested pipeline %q is not defined", name)).
				WithDetail("pipeline", name)
		}
		add(i)
	}
	for i, def := range defs {
		if def.Trigger == TriggerAlways {
			add(i)
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, dep := range defs[i].Dependencies {
			// Unknown names are reported by BuildGraph.
			if j, ok := index.Get(dep); ok {
				add(j)
			}
		}
	}

	triggered := make([]string, 0, len(names))
	for i, name := range names {
		if include[i] {
			triggered = append(triggered, name)
		}
	}
	return triggered, nil
}
