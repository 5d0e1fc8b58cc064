package engine

import (
	"fmt"
	"slices"

	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/util"
)

// Rules reported in the "rule" detail of configuration errors.
const (
	RuleMissingDependency    = "missing_dependency"
	RuleDependencyCycle      = "dependency_cycle"
	RuleIsolatedDependencies = "isolated_has_dependencies"
	RuleDependsOnIsolated    = "depends_on_isolated"
	RuleDependsOnManual      = "depends_on_manual"
)

// PipelinePhase is one (pipeline, phase) node of a Graph.
type PipelinePhase struct {
	// Ordinal is the node's position in Graph.Nodes.
	Ordinal  int
	Pipeline string
	Phase    Phase
	Modules  []Module
	// Dependencies holds the ordinals of the nodes that must complete
	// before this one starts.
	Dependencies []int

	pipeline int
}

func (n PipelinePhase) String() string {
	return n.Pipeline + "/" + n.Phase.String()
}

type graphPipeline struct {
	name     string
	trigger  Trigger
	isolated bool
	deps     []int
}

// Graph is the compiled, validated form of a pipeline set. Nodes are stored
// phase-major, pipeline-minor, which is a valid topological order.
// A Graph is immutable and safe for concurrent use.
type Graph struct {
	nodes     []PipelinePhase
	pipelines []graphPipeline
	index     *util.NameMap[int]
}

// BuildGraph validates pipelines and compiles them into a Graph.
// It fails with a CONFIGURATION_ERROR, and no partial graph, when a
// dependency is missing, forms a cycle, involves an isolated pipeline or
// targets a manual pipeline.
func BuildGraph(pipelines *Pipelines, log *logger.Logger) (*Graph, error) {
	if log == nil {
		log = logger.Nop()
	}
	names, defs := pipelines.snapshot()

	g := &Graph{
		pipelines: make([]graphPipeline, len(names)),
		index:     util.NewNameMap[int](),
	}
	for i, name := range names {
		g.index.Add(name, i)
		g.pipelines[i] = graphPipeline{name: name, trigger: defs[i].Trigger, isolated: defs[i].Isolated}
	}

	for i, def := range defs {
		name := names[i]
		if def.Isolated && len(def.Dependencies) > 0 {
			return nil, errors.Configuration(RuleIsolatedDependencies,
				fmt.Sprintf("Isolated pipeline %s cannot have dependencies", name), name)
		}
		for _, dep := range def.Dependencies {
			j, ok := g.index.Get(dep)
			if !ok {
				return nil, errors.Configuration(RuleMissingDependency,
					fmt.Sprintf("Could not find pipeline dependency %s of %s", dep, name), name, dep)
			}
			target := g.pipelines[j]
			if target.isolated {
				return nil, errors.Configuration(RuleDependsOnIsolated,
					fmt.Sprintf("Pipeline %s has dependency on isolated pipeline %s", name, target.name), name, target.name)
			}
			if target.trigger == TriggerManual {
				return nil, errors.Configuration(RuleDependsOnManual,
					fmt.Sprintf("Pipeline %s has dependency on manual pipeline %s", name, target.name), name, target.name)
			}
			if !slices.Contains(g.pipelines[i].deps, j) {
				g.pipelines[i].deps = append(g.pipelines[i].deps, j)
			}
		}
	}

	if path := g.findCycle(); path != nil {
		return nil, errors.Cycle(RuleDependencyCycle, path)
	}

	g.buildNodes(defs)
	log.Debug("pipeline graph built", logger.Fields("pipelines", len(names), "nodes", len(g.nodes)))
	return g, nil
}

// findCycle runs a three-color depth-first search in declaration order and
// returns the first cycle found, with its first pipeline repeated at the end.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.pipelines))
	var stack []int

	var visit func(i int) []string
	visit = func(i int) []string {
		color[i] = gray
		stack = append(stack, i)
		for _, d := range g.pipelines[i].deps {
			switch color[d] {
			case gray:
				start := slices.Index(stack, d)
				path := make([]string, 0, len(stack)-start+1)
				for _, s := range stack[start:] {
					path = append(path, g.pipelines[s].name)
				}
				return append(path, g.pipelines[d].name)
			case white:
				if path := visit(d); path != nil {
					return path
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return nil
	}

	for i := range g.pipelines {
		if color[i] == white {
			if path := visit(i); path != nil {
				return path
			}
		}
	}
	return nil
}

func (g *Graph) buildNodes(defs []*Pipeline) {
	n := len(g.pipelines)
	g.nodes = make([]PipelinePhase, 0, n*len(Phases))
	for _, phase := range Phases {
		for i, p := range g.pipelines {
			node := PipelinePhase{
				Ordinal:  len(g.nodes),
				Pipeline: p.name,
				Phase:    phase,
				Modules:  slices.Clone(defs[i].Modules(phase)),
				pipeline: i,
			}
			if phase > PhaseInput {
				node.Dependencies = append(node.Dependencies, g.ordinal(i, phase-1))
			}
			for _, d := range p.deps {
				node.Dependencies = append(node.Dependencies, g.ordinal(d, phase))
			}
			// Rendering waits until every visible pipeline finished processing.
			if phase == PhasePostProcess && !p.isolated {
				for j, other := range g.pipelines {
					dep := g.ordinal(j, PhaseProcess)
					if j == i || other.isolated || slices.Contains(node.Dependencies, dep) {
						continue
					}
					node.Dependencies = append(node.Dependencies, dep)
				}
			}
			g.nodes = append(g.nodes, node)
		}
	}
}

func (g *Graph) ordinal(pipeline int, phase Phase) int {
	return int(phase)*len(g.pipelines) + pipeline
}

func (g *Graph) node(pipeline int, phase Phase) *PipelinePhase {
	return &g.nodes[g.ordinal(pipeline, phase)]
}

// Nodes returns every node in phase-major, pipeline-minor order.
func (g *Graph) Nodes() []PipelinePhase {
	return slices.Clone(g.nodes)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Pipelines returns the pipeline names in declaration order.
func (g *Graph) Pipelines() []string {
	return g.index.Names()
}

// Node returns the node for pipeline and phase.
func (g *Graph) Node(pipeline string, phase Phase) (PipelinePhase, bool) {
	i, ok := g.index.Get(pipeline)
	if !ok || !phase.Valid() {
		return PipelinePhase{}, false
	}
	return *g.node(i, phase), true
}

// Dependencies returns the direct dependencies of pipeline by their
// declared names.
func (g *Graph) Dependencies(pipeline string) ([]string, error) {
	i, ok := g.index.Get(pipeline)
	if !ok {
		return nil, errors.NotFound("pipeline", pipeline)
	}
	return g.names(g.pipelines[i].deps), nil
}

// TransitiveDependencies returns every pipeline that pipeline depends on,
// directly or not, with dependencies listed before their dependents.
func (g *Graph) TransitiveDependencies(pipeline string) ([]string, error) {
	i, ok := g.index.Get(pipeline)
	if !ok {
		return nil, errors.NotFound("pipeline", pipeline)
	}
	return g.names(g.transitiveDependencies(i)), nil
}

// transitiveDependencies walks the dependency edges depth-first and emits
// each pipeline after everything it depends on.
func (g *Graph) transitiveDependencies(i int) []int {
	seen := make([]bool, len(g.pipelines))
	var out []int
	var walk func(p int)
	walk = func(p int) {
		for _, d := range g.pipelines[p].deps {
			if seen[d] {
				continue
			}
			seen[d] = true
			walk(d)
			out = append(out, d)
		}
	}
	walk(i)
	return out
}

func (g *Graph) names(indexes []int) []string {
	out := make([]string, len(indexes))
	for k, i := range indexes {
		out[k] = g.pipelines[i].name
	}
	return out
}
