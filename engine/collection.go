package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/errors"
)

// DocumentCollection exposes other pipelines' documents to a running module.
// It is bound to the executing node and re-reads the store on every call,
// so results may change while sibling nodes are still completing.
//
// Visibility depends on the executing phase:
//   - Input and Output may not query at all, nor may isolated pipelines.
//   - Process sees the transitive dependencies of its pipeline, in
//     dependency order.
//   - PostProcess sees every non-isolated pipeline, itself included.
type DocumentCollection struct {
	store   *Store
	graph   *Graph
	current *PipelinePhase
}

func newDocumentCollection(store *Store, graph *Graph, current *PipelinePhase) *DocumentCollection {
	return &DocumentCollection{store: store, graph: graph, current: current}
}

// All returns the visible documents, deduplicated by identity in first-seen
// order.
func (c *DocumentCollection) All() ([]document.Document, error) {
	return c.ExceptPipeline("")
}

// ExceptPipeline is All without the documents of the named pipeline.
func (c *DocumentCollection) ExceptPipeline(pipeline string) ([]document.Document, error) {
	sources, err := c.sources()
	if err != nil {
		return nil, err
	}
	var docs []document.Document
	for _, i := range sources {
		name := c.graph.pipelines[i].name
		if pipeline != "" && strings.EqualFold(name, pipeline) {
			continue
		}
		out, _ := c.store.Get(name)
		docs = append(docs, out...)
	}
	return document.Distinct(docs), nil
}

// FromPipeline returns the documents of exactly one pipeline.
// During Process only (transitive) dependencies of the current pipeline may
// be requested; during PostProcess any pipeline may.
func (c *DocumentCollection) FromPipeline(pipeline string) ([]document.Document, error) {
	if strings.TrimSpace(pipeline) == "" {
		return nil, errors.InvalidInput("pipeline", "pipeline name must not be empty")
	}
	if err := c.checkAccess(); err != nil {
		return nil, err
	}
	i, ok := c.graph.index.Get(pipeline)
	if !ok {
		return nil, errors.NotFound("pipeline", pipeline)
	}
	if c.current.Phase == PhaseProcess {
		if i == c.current.pipeline {
			return nil, errors.InvalidOperation(fmt.Sprintf(
				"Cannot access documents from currently executing pipeline %s during %s phase", c.current.Pipeline, c.current.Phase))
		}
		if !c.isDependency(i) {
			return nil, errors.InvalidOperation(fmt.Sprintf(
				"Cannot access documents from pipeline %s without a dependency during %s phase", c.graph.pipelines[i].name, c.current.Phase))
		}
	}
	if c.graph.pipelines[i].isolated && i != c.current.pipeline {
		return nil, errors.InvalidOperation(fmt.Sprintf(
			"Cannot access documents from isolated pipeline %s", c.graph.pipelines[i].name))
	}
	docs, _ := c.store.Get(c.graph.pipelines[i].name)
	return docs, nil
}

// sources returns the pipeline indexes visible to the current node, in
// enumeration order.
func (c *DocumentCollection) sources() ([]int, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}
	if c.current.Phase == PhaseProcess {
		return c.graph.transitiveDependencies(c.current.pipeline), nil
	}
	var all []int
	for i, p := range c.graph.pipelines {
		if !p.isolated {
			all = append(all, i)
		}
	}
	return all, nil
}

func (c *DocumentCollection) checkAccess() error {
	if c.current.Phase.isEdge() {
		return errors.InvalidOperation(fmt.Sprintf(
			"Documents from other pipelines cannot be accessed during the %s phase", c.current.Phase))
	}
	if c.graph.pipelines[c.current.pipeline].isolated {
		return errors.InvalidOperation(fmt.Sprintf(
			"Documents from other pipelines cannot be accessed from isolated pipeline %s", c.current.Pipeline))
	}
	return nil
}

func (c *DocumentCollection) isDependency(i int) bool {
	return slices.Contains(c.graph.transitiveDependencies(c.current.pipeline), i)
}
