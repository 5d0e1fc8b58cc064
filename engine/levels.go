package engine

import (
	"fmt"
	"slices"

	"github.com/kbukum/docflow/errors"
)

// Levels groups the nodes of the named pipelines, or of every pipeline when
// none are named, by dependency depth using Kahn's algorithm. Nodes within
// the same level have no dependencies on each other and can run in parallel.
// Edges to pipelines outside the selection are ignored.
func (g *Graph) Levels(pipelines ...string) ([][]PipelinePhase, error) {
	active, err := g.activeSet(pipelines, true)
	if err != nil {
		return nil, err
	}

	inDegree := make(map[int]int)
	dependents := make(map[int][]int) // from -> [to...]
	for _, n := range g.nodes {
		if !active[n.pipeline] {
			continue
		}
		inDegree[n.Ordinal] = 0
		for _, d := range n.Dependencies {
			if !active[g.nodes[d].pipeline] {
				continue
			}
			inDegree[n.Ordinal]++
			dependents[d] = append(dependents[d], n.Ordinal)
		}
	}

	// Collect nodes with no incoming edges (level 0)
	var queue []int
	for _, n := range g.nodes {
		if active[n.pipeline] && inDegree[n.Ordinal] == 0 {
			queue = append(queue, n.Ordinal)
		}
	}

	var levels [][]PipelinePhase
	visited := 0
	for len(queue) > 0 {
		level := make([]PipelinePhase, len(queue))
		for i, ord := range queue {
			level[i] = g.nodes[ord]
		}
		levels = append(levels, level)
		visited += len(queue)

		var next []int
		for _, ord := range queue {
			for _, dep := range dependents[ord] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		slices.Sort(next)
		queue = next
	}

	if visited != len(inDegree) {
		return nil, errors.Internal(fmt.Errorf("cycle detected, processed %d of %d nodes", visited, len(inDegree)))
	}
	return levels, nil
}

// activeSet marks the pipelines selected by names. An empty selection marks
// every pipeline when allWhenEmpty is set and none otherwise.
func (g *Graph) activeSet(names []string, allWhenEmpty bool) ([]bool, error) {
	active := make([]bool, len(g.pipelines))
	if len(names) == 0 && allWhenEmpty {
		for i := range active {
			active[i] = true
		}
		return active, nil
	}
	for _, name := range names {
		i, ok := g.index.Get(name)
		if !ok {
			return nil, errors.NotFound("pipeline", name)
		}
		active[i] = true
	}
	return active, nil
}
