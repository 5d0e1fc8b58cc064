package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/observability"
)

// Engine owns a pipeline set and runs it.
//
//	e := engine.New(engine.WithLogger(log))
//	e.Pipelines.Add("Content", &engine.Pipeline{ProcessModules: mods})
//	result, err := e.Execute(ctx)
type Engine struct {
	Pipelines *Pipelines
	Events    *Events
	Logger    *logger.Logger
	Metrics   *observability.Metrics
	// MaxParallel limits concurrently executing phases (0 = unlimited).
	MaxParallel int
}

// New creates an engine with an empty pipeline set.
func New(opts ...Option) *Engine {
	o := resolveOptions(opts)
	e := &Engine{
		Pipelines:   NewPipelines(),
		Events:      o.events,
		Logger:      o.logger,
		Metrics:     o.metrics,
		MaxParallel: o.maxParallel,
	}
	if e.Events == nil {
		e.Events = NewEvents()
	}
	if e.Logger == nil {
		e.Logger = logger.Get("engine")
	}
	e.Events.SetLogger(e.Logger)
	return e
}

// Build validates the pipeline set and compiles it into a Graph.
func (e *Engine) Build() (*Graph, error) {
	return BuildGraph(e.Pipelines, e.Logger)
}

// TriggeredPipelines resolves which pipelines a run over requested would
// execute; see ResolveTriggered.
func (e *Engine) TriggeredPipelines(requested []string) ([]string, error) {
	return ResolveTriggered(e.Pipelines, requested)
}

// Execute builds the graph, resolves the triggered pipelines and runs them.
// Configuration and argument errors are returned before any module runs.
func (e *Engine) Execute(ctx context.Context, opts ...RunOption) (*Result, error) {
	ro := resolveRunOptions(opts)

	graph, err := e.Build()
	if err != nil {
		return nil, err
	}
	triggered, err := e.TriggeredPipelines(ro.pipelines)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	log := e.Logger.WithFields(logger.Fields(logger.FieldRunID, runID.String()))
	ctx, span := observability.StartSpan(ctx, "engine.execute")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrRunID, runID.String())
	observability.SetSpanAttribute(ctx, observability.AttrPipelines, triggered)

	e.Events.Publish(ctx, &BeforeEngineExecution{RunID: runID, Pipelines: triggered})
	log.Info("executing pipelines", logger.Fields("pipelines", triggered))

	scheduler := &Scheduler{
		MaxParallel: e.MaxParallel,
		Events:      e.Events,
		Logger:      log,
		Metrics:     e.Metrics,
	}
	start := time.Now()
	result, err := scheduler.Execute(ctx, graph, Request{RunID: runID, Pipelines: triggered, Seeds: ro.seeds})
	if result == nil {
		return nil, err
	}

	e.Events.Publish(ctx, &AfterEngineExecution{RunID: runID, Result: result})
	e.Metrics.RecordRun(ctx, string(result.Status), time.Since(start))

	fields := logger.Fields(
		logger.FieldStatus, string(result.Status),
		logger.FieldDuration, result.Duration.Milliseconds(),
		"completed", result.count(PhaseCompleted),
		"phases", len(result.Phases),
	)
	switch result.Status {
	case RunFailed:
		observability.SetSpanError(ctx, err)
		log.WithError(err).Error("pipeline execution failed", fields)
	case RunCancelled:
		log.Warn("pipeline execution cancelled", fields)
	default:
		log.Info("pipeline execution finished", fields)
	}
	return result, err
}

// Option configures an Engine during creation.
type Option func(*engineOptions)

type engineOptions struct {
	logger      *logger.Logger
	events      *Events
	metrics     *observability.Metrics
	maxParallel int
}

func resolveOptions(opts []Option) *engineOptions {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *engineOptions) {
		o.logger = l
	}
}

// WithEvents sets the event bus shared with other components.
func WithEvents(ev *Events) Option {
	return func(o *engineOptions) {
		o.events = ev
	}
}

// WithMetrics enables metric recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *engineOptions) {
		o.metrics = m
	}
}

// WithMaxParallel limits concurrently executing phases.
func WithMaxParallel(n int) Option {
	return func(o *engineOptions) {
		o.maxParallel = n
	}
}

// WithConfig applies cfg.
func WithConfig(cfg Config) Option {
	return func(o *engineOptions) {
		o.maxParallel = cfg.MaxParallel
	}
}

// RunOption configures a single Execute call.
type RunOption func(*runOptions)

type runOptions struct {
	pipelines []string
	seeds     map[string][]document.Document
}

func resolveRunOptions(opts []RunOption) *runOptions {
	o := &runOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithPipelines requests the named pipelines. Calling it with no names
// requests only the Always pipelines.
func WithPipelines(names ...string) RunOption {
	return func(o *runOptions) {
		o.pipelines = append(make([]string, 0, len(names)), names...)
	}
}

// WithSeeds supplies the documents fed to each pipeline's Input phase.
func WithSeeds(seeds map[string][]document.Document) RunOption {
	return func(o *runOptions) {
		o.seeds = seeds
	}
}
