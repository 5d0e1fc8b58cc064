package engine

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/observability"
)

// Request describes one run of a Graph.
type Request struct {
	// RunID identifies the run. A new ID is generated when empty.
	RunID uuid.UUID
	// Pipelines names the pipelines to execute. The set is used as given:
	// dependencies are not added and an empty set runs nothing. Pass the
	// result of ResolveTriggered to run a trigger-resolved set.
	Pipelines []string
	// Seeds holds the documents fed to each pipeline's Input phase, keyed by
	// pipeline name without regard to case.
	Seeds map[string][]document.Document
}

// Scheduler executes the nodes of a Graph in dependency order. Every node
// waits for its dependency nodes; independent nodes run concurrently.
type Scheduler struct {
	// MaxParallel limits concurrently executing nodes (0 = unlimited).
	MaxParallel int
	Events      *Events
	Logger      *logger.Logger
	Metrics     *observability.Metrics
}

// Execute runs the nodes of the requested pipelines.
//
// A module failure stops the dispatch of new nodes while already running
// nodes finish; Execute then returns the Result together with an
// EXECUTION_FAILED error. Cancelling ctx stops the run between modules and
// returns a Result with status RunCancelled and no error.
func (s *Scheduler) Execute(ctx context.Context, g *Graph, req Request) (*Result, error) {
	start := time.Now()
	active, err := g.activeSet(req.Pipelines, false)
	if err != nil {
		return nil, err
	}
	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}
	log := s.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := &run{
		id:      req.RunID,
		graph:   g,
		store:   NewStore(),
		events:  s.Events,
		log:     log,
		metrics: s.Metrics,
	}
	seeds := make(map[string][]document.Document, len(req.Seeds))
	for name, docs := range req.Seeds {
		seeds[strings.ToLower(name)] = docs
	}

	var ordinals []int
	done := make([]chan struct{}, len(g.nodes))
	for _, node := range g.nodes {
		if active[node.pipeline] {
			ordinals = append(ordinals, node.Ordinal)
			done[node.Ordinal] = make(chan struct{})
		}
	}

	ns := &nodeSet{
		active:  active,
		done:    done,
		results: make([]PhaseResult, len(g.nodes)),
		sem:     make(chan struct{}, s.concurrency(len(ordinals))),
		seeds:   seeds,
	}

	var wg sync.WaitGroup
	for _, ord := range ordinals {
		wg.Add(1)
		go func(node *PipelinePhase) {
			defer wg.Done()
			defer close(ns.done[node.Ordinal])
			ns.results[node.Ordinal] = s.runNode(ctx, r, ns, node)
		}(&g.nodes[ord])
	}
	wg.Wait()

	var names []string
	for i, p := range g.pipelines {
		if active[i] {
			names = append(names, p.name)
		}
	}
	result := &Result{
		RunID:    r.id,
		Status:   RunCompleted,
		Outputs:  newOutputs(r.store, names),
		Phases:   make([]PhaseResult, 0, len(ordinals)),
		Duration: time.Since(start),
	}
	var firstErr error
	for _, ord := range ordinals {
		pr := ns.results[ord]
		result.Phases = append(result.Phases, pr)
		if pr.Status == PhaseFailed && firstErr == nil {
			firstErr = pr.Error
		}
	}

	switch {
	case firstErr != nil:
		result.Status = RunFailed
		failed := make([]string, 0)
		for _, pr := range result.Failed() {
			failed = append(failed, pr.Pipeline+"/"+pr.Phase.String())
		}
		return result, errors.ExecutionFailed(firstErr).
			WithDetail("failed", failed).
			WithDetail("completed", result.Completed())
	case result.count(PhaseCompleted) != len(result.Phases):
		result.Status = RunCancelled
	}
	return result, nil
}

// nodeSet is the per-run scheduling state. results[i] is written only by
// node i's goroutine before done[i] is closed.
type nodeSet struct {
	active  []bool
	done    []chan struct{}
	results []PhaseResult
	sem     chan struct{}
	failed  atomic.Bool
	seeds   map[string][]document.Document
}

func (s *Scheduler) runNode(ctx context.Context, r *run, ns *nodeSet, node *PipelinePhase) PhaseResult {
	res := PhaseResult{Pipeline: node.Pipeline, Phase: node.Phase}

	for _, d := range node.Dependencies {
		if !ns.active[r.graph.nodes[d].pipeline] {
			continue
		}
		<-ns.done[d]
		switch ns.results[d].Status {
		case PhaseCompleted:
		case PhaseCancelled:
			res.Status = PhaseCancelled
			return res
		default:
			res.Status = PhaseSkipped
			return res
		}
	}

	if ctx.Err() != nil {
		res.Status = PhaseCancelled
		return res
	}
	select {
	case ns.sem <- struct{}{}:
	case <-ctx.Done():
		res.Status = PhaseCancelled
		return res
	}
	defer func() { <-ns.sem }()
	if ns.failed.Load() {
		res.Status = PhaseSkipped
		return res
	}

	var inputs []document.Document
	if node.Phase == PhaseInput {
		inputs = ns.seeds[strings.ToLower(node.Pipeline)]
	} else {
		inputs, _ = r.store.Get(node.Pipeline)
	}

	start := time.Now()
	outputs, err := s.executeNode(ctx, r, node, inputs)
	res.Duration = time.Since(start)
	res.Documents = len(outputs)

	switch {
	case err == nil:
		res.Status = PhaseCompleted
	case ctx.Err() != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)):
		res.Status = PhaseCancelled
	default:
		res.Status = PhaseFailed
		res.Error = err
		ns.failed.Store(true)
	}
	r.metrics.RecordPhase(ctx, node.Pipeline, node.Phase.String(), string(res.Status), res.Duration)
	return res
}

// executeNode runs the node's modules over inputs and records the
// deduplicated output in the store.
func (s *Scheduler) executeNode(ctx context.Context, r *run, node *PipelinePhase, inputs []document.Document) ([]document.Document, error) {
	ctx, span := observability.StartSpan(ctx, "phase."+node.Phase.String())
	defer span.End()
	ec := r.newContext(ctx, node)
	observability.SetSpanAttribute(ctx, observability.AttrPipeline, node.Pipeline)
	observability.SetSpanAttribute(ctx, observability.AttrPhase, node.Phase.String())
	observability.SetSpanAttribute(ctx, observability.AttrInputDocuments, len(inputs))

	r.events.Publish(ctx, &BeforePhaseExecution{RunID: r.id, Pipeline: node.Pipeline, Phase: node.Phase, Inputs: inputs})
	ec.log.Debug("phase started", logger.Fields(logger.FieldDocuments, len(inputs)))

	start := time.Now()
	outputs, err := r.executeModules(ctx, ec, node.Modules, inputs)
	if err == nil {
		outputs = document.Distinct(outputs)
		r.store.Set(node.Pipeline, outputs)
	}
	duration := time.Since(start)

	r.events.Publish(ctx, &AfterPhaseExecution{
		RunID:    r.id,
		Pipeline: node.Pipeline,
		Phase:    node.Phase,
		Outputs:  outputs,
		Duration: duration,
		Err:      err,
	})

	if err != nil {
		observability.SetSpanError(ctx, err)
		if ctx.Err() == nil {
			r.metrics.RecordError(ctx, "phase", node.String())
			ec.log.WithError(err).Error("phase failed", logger.DurationFields(duration, 0))
		}
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrOutputDocuments, len(outputs))
	ec.log.Debug("phase finished", logger.DurationFields(duration, len(outputs)))
	return outputs, nil
}

func (s *Scheduler) concurrency(nodes int) int {
	if s.MaxParallel <= 0 || s.MaxParallel > nodes {
		return max(nodes, 1)
	}
	return s.MaxParallel
}
