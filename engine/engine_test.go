package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
	"github.com/kbukum/docflow/engine/testutil"
	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/logger"
)

func newEngine(t *testing.T, b *testutil.PipelineBuilder, opts ...engine.Option) *engine.Engine {
	t.Helper()
	e, err := b.Engine(append([]engine.Option{engine.WithLogger(logger.Nop())}, opts...)...)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return e
}

func fooValues(docs []document.Document) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = document.GetOr(d, "Foo", -1)
	}
	return out
}

func TestExecuteRunsModule(t *testing.T) {
	module := &testutil.CountModule{ValueKey: "Foo", EnsureInputDocument: true}
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("TestPipeline").Process(module))

	result, err := e.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if module.ExecuteCount != 1 {
		t.Errorf("expected 1 execution, got %d", module.ExecuteCount)
	}
	if got := fooValues(result.Outputs.Get("TestPipeline")); !slices.Equal(got, []int{1}) {
		t.Errorf("expected Foo [1], got %v", got)
	}
	if result.Status != engine.RunCompleted || len(result.Phases) != 4 {
		t.Errorf("expected 4 completed phases, got %s with %d phases", result.Status, len(result.Phases))
	}
}

func TestBeforeModuleEventOverride(t *testing.T) {
	module := &testutil.CountModule{ValueKey: "Foo", EnsureInputDocument: true}
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("TestPipeline").Process(module))
	engine.Subscribe(e.Events, func(_ context.Context, ev *engine.BeforeModuleExecution) {
		ev.OverrideOutputs([]document.Document{document.New("", map[string]any{"Foo": 123})})
	})

	result, err := e.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if module.ExecuteCount != 0 {
		t.Errorf("expected module to be skipped, got %d executions", module.ExecuteCount)
	}
	if got := fooValues(result.Outputs.Get("TestPipeline")); !slices.Equal(got, []int{123}) {
		t.Errorf("expected Foo [123], got %v", got)
	}
}

func TestAfterModuleEventOverride(t *testing.T) {
	module := &testutil.CountModule{ValueKey: "Foo", EnsureInputDocument: true}
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("TestPipeline").Process(module))
	engine.Subscribe(e.Events, func(_ context.Context, ev *engine.AfterModuleExecution) {
		foo := document.GetOr(ev.Outputs[0], "Foo", 0)
		ev.OverrideOutputs([]document.Document{document.New("", map[string]any{"Foo": foo + 123})})
	})

	result, err := e.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if module.ExecuteCount != 1 {
		t.Errorf("expected 1 execution, got %d", module.ExecuteCount)
	}
	if got := fooValues(result.Outputs.Get("TestPipeline")); !slices.Equal(got, []int{124}) {
		t.Errorf("expected Foo [124], got %v", got)
	}
}

func TestModuleEventsLastOverrideWins(t *testing.T) {
	module := &testutil.CountModule{ValueKey: "Foo", EnsureInputDocument: true}
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("P").Process(module))
	for _, v := range []int{1, 2, 3} {
		engine.Subscribe(e.Events, func(_ context.Context, ev *engine.BeforeModuleExecution) {
			ev.OverrideOutputs([]document.Document{document.New("", map[string]any{"Foo": v})})
		})
	}

	result, _ := e.Execute(context.Background())
	if got := fooValues(result.Outputs.Get("P")); !slices.Equal(got, []int{3}) {
		t.Errorf("expected Foo [3], got %v", got)
	}
}

func TestEngineAndPhaseEvents(t *testing.T) {
	e := newEngine(t, testutil.NewPipelineBuilder().
		Pipeline("A").
		Pipeline("B", "A"))

	var mu sync.Mutex
	var events []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	}
	engine.Subscribe(e.Events, func(_ context.Context, ev *engine.BeforeEngineExecution) {
		record("before:" + ev.RunID.String())
	})
	engine.Subscribe(e.Events, func(_ context.Context, ev *engine.AfterEngineExecution) {
		record("after:" + ev.RunID.String())
	})
	var phases atomic.Int32
	engine.Subscribe(e.Events, func(context.Context, *engine.AfterPhaseExecution) { phases.Add(1) })

	result, err := e.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"before:" + result.RunID.String(), "after:" + result.RunID.String()}
	if !slices.Equal(events, want) {
		t.Errorf("expected %v, got %v", want, events)
	}
	if phases.Load() != 8 {
		t.Errorf("expected 8 phase events, got %d", phases.Load())
	}
}

func TestCaseInsensitiveDependencyOrder(t *testing.T) {
	e := newEngine(t, testutil.NewPipelineBuilder().
		Pipeline("Foo", "bar").
		Pipeline("Bar"))

	res := testutil.RunTest(context.Background(), e)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	pos := func(node string) int {
		i := slices.Index(res.Started, node)
		if i < 0 {
			t.Fatalf("node %s did not start: %v", node, res.Started)
		}
		return i
	}
	for _, phase := range engine.Phases {
		if pos("Bar/"+phase.String()) > pos("Foo/"+phase.String()) {
			t.Errorf("expected Bar/%s before Foo/%s: %v", phase, phase, res.Started)
		}
		if phase > engine.PhaseInput {
			prev := phase - 1
			for _, p := range []string{"Foo", "Bar"} {
				if pos(p+"/"+prev.String()) > pos(p+"/"+phase.String()) {
					t.Errorf("expected %s/%s before %s/%s", p, prev, p, phase)
				}
			}
		}
	}
	if pos("Foo/Process") > pos("Bar/PostProcess") || pos("Bar/Process") > pos("Foo/PostProcess") {
		t.Errorf("expected every Process before any PostProcess: %v", res.Started)
	}
}

func TestSeedsFlowThroughEmptyPhases(t *testing.T) {
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("Pages"))
	seeds := []document.Document{document.New("a", nil), document.New("b", nil)}

	result, err := e.Execute(context.Background(), engine.WithSeeds(map[string][]document.Document{"pages": seeds}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := result.Outputs.Get("Pages")
	if len(out) != 2 || out[0] != seeds[0] || out[1] != seeds[1] {
		t.Errorf("expected seeds to pass through unchanged, got %v", document.Contents(out))
	}
}

func TestPhaseOutputIsDeduplicated(t *testing.T) {
	d := document.New("a", nil)
	dup := testutil.NewMockModule("dup", []document.Document{d, d, d}, nil)
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("P").Process(dup))

	result, _ := e.Execute(context.Background())
	if got := len(result.Outputs.Get("P")); got != 1 {
		t.Errorf("expected 1 distinct document, got %d", got)
	}
}

func TestDocumentCollectionFromModule(t *testing.T) {
	data := testutil.NewMockModule("data", []document.Document{document.New("d1", nil)}, nil)
	var (
		processDocs []string
		renderDocs  []string
		processErr  error
	)
	e := newEngine(t, testutil.NewPipelineBuilder().
		Pipeline("Data").Process(data).
		Pipeline("Pages", "Data").
		Process(engine.ModuleFunc(func(_ context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
			docs, err := ec.Documents().FromPipeline("Data")
			processDocs = document.Contents(docs)
			_, processErr = ec.Documents().FromPipeline("Other")
			return append(inputs, document.New("p1", nil)), err
		})).
		PostProcess(engine.ModuleFunc(func(_ context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
			docs, err := ec.Documents().All()
			renderDocs = document.Contents(docs)
			return inputs, err
		})).
		Pipeline("Other").Process(testutil.NewMockModule("other", []document.Document{document.New("o1", nil)}, nil)))

	if _, err := e.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(processDocs, []string{"d1"}) {
		t.Errorf("expected Data documents during Process, got %v", processDocs)
	}
	if !errors.HasCode(processErr, errors.ErrCodeInvalidOperation) {
		t.Errorf("expected INVALID_OPERATION for non-dependency, got %v", processErr)
	}
	if !slices.Equal(renderDocs, []string{"d1", "p1", "o1"}) {
		t.Errorf("expected every Process output during PostProcess, got %v", renderDocs)
	}
}

func TestExecutionContext(t *testing.T) {
	var (
		pipeline string
		phase    engine.Phase
		runID    string
	)
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("Pages").
		Output(engine.ModuleFunc(func(_ context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
			pipeline, phase, runID = ec.PipelineName(), ec.Phase(), ec.RunID().String()
			if ec.Logger() == nil {
				t.Error("expected logger")
			}
			return inputs, nil
		})))

	result, err := e.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pipeline != "Pages" || phase != engine.PhaseOutput || runID != result.RunID.String() {
		t.Errorf("unexpected context: %s %s %s", pipeline, phase, runID)
	}
}

func TestNestedModulesPublishEvents(t *testing.T) {
	child := testutil.NewMockModule("child", nil, nil)
	parent := engine.ModuleFunc(func(ctx context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
		return ec.ExecuteModules(ctx, []engine.Module{child, child}, inputs)
	})
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("P").Process(parent))

	var names []string
	engine.Subscribe(e.Events, func(_ context.Context, ev *engine.BeforeModuleExecution) {
		names = append(names, engine.ModuleName(ev.Module))
	})
	if _, err := e.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(names, []string{"ModuleFunc", "child", "child"}) {
		t.Errorf("expected parent and child events, got %v", names)
	}
}

func TestModuleFailure(t *testing.T) {
	boom := stderrors.New("boom")
	after := testutil.NewMockModule("after", nil, nil)
	e := newEngine(t, testutil.NewPipelineBuilder().
		Pipeline("A").Process(testutil.NewMockModule("fail", nil, boom), after).
		Pipeline("B", "A").Output(after))

	result, err := e.Execute(context.Background())
	if !errors.HasCode(err, errors.ErrCodeExecutionFailed) {
		t.Fatalf("expected EXECUTION_FAILED, got %v", err)
	}
	if !stderrors.Is(err, boom) {
		t.Errorf("expected error to wrap the module error, got %v", err)
	}
	if result == nil || result.Status != engine.RunFailed {
		t.Fatalf("expected failed result, got %+v", result)
	}
	if after.Calls() != 0 {
		t.Errorf("expected no module after the failure to run, got %d calls", after.Calls())
	}
	appErr, _ := errors.AsAppError(err)
	if failed, _ := appErr.Details["failed"].([]string); !slices.Equal(failed, []string{"A/Process"}) {
		t.Errorf("expected failed [A/Process], got %v", appErr.Details["failed"])
	}
	if len(result.Completed()) != 0 {
		t.Errorf("expected no completed pipelines, got %v", result.Completed())
	}
	if !slices.Contains(result.Pending(), "B/Output") {
		t.Errorf("expected B/Output to be pending, got %v", result.Pending())
	}
}

func TestFailureLetsIndependentWorkFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := engine.ModuleFunc(func(_ context.Context, _ engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
		close(started)
		<-release
		return inputs, nil
	})
	failing := engine.ModuleFunc(func(context.Context, engine.ExecutionContext, []document.Document) ([]document.Document, error) {
		<-started
		defer close(release)
		return nil, stderrors.New("boom")
	})
	e := newEngine(t, testutil.NewPipelineBuilder().
		Pipeline("Slow").Isolated().Input(slow).
		Pipeline("Failing").Isolated().Input(failing))

	result, err := e.Execute(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	var slowInput engine.PhaseResult
	for _, pr := range result.Phases {
		if pr.Pipeline == "Slow" && pr.Phase == engine.PhaseInput {
			slowInput = pr
		}
	}
	if slowInput.Status != engine.PhaseCompleted {
		t.Errorf("expected in-flight phase to complete, got %s", slowInput.Status)
	}
	for _, pr := range result.Phases {
		if pr.Pipeline == "Failing" && pr.Phase > engine.PhaseInput && pr.Status != engine.PhaseSkipped {
			t.Errorf("expected Failing/%s to be skipped, got %s", pr.Phase, pr.Status)
		}
	}
}

func TestModulePanic(t *testing.T) {
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("P").
		Process(engine.ModuleFunc(func(context.Context, engine.ExecutionContext, []document.Document) ([]document.Document, error) {
			panic("kaboom")
		})))

	result, err := e.Execute(context.Background())
	if !errors.HasCode(err, errors.ErrCodeExecutionFailed) {
		t.Fatalf("expected EXECUTION_FAILED, got %v", err)
	}
	if !errors.HasCode(result.Failed()[0].Error, errors.ErrCodeInternal) {
		t.Errorf("expected INTERNAL_ERROR cause, got %v", result.Failed()[0].Error)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	next := testutil.NewMockModule("next", nil, nil)
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("P").
		Process(engine.ModuleFunc(func(_ context.Context, _ engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
			cancel()
			return inputs, nil
		}), next).
		Output(next))

	result, err := e.Execute(ctx)
	if err != nil {
		t.Fatalf("expected no error on cancellation, got %v", err)
	}
	if result.Status != engine.RunCancelled {
		t.Errorf("expected cancelled run, got %s", result.Status)
	}
	if next.Calls() != 0 {
		t.Errorf("expected no module to run after cancellation, got %d", next.Calls())
	}
	if !slices.Equal(result.Pending(), []string{"P/Process", "P/PostProcess", "P/Output"}) {
		t.Errorf("unexpected pending nodes %v", result.Pending())
	}
	if result.Phases[0].Status != engine.PhaseCompleted {
		t.Errorf("expected completed Input phase, got %s", result.Phases[0].Status)
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	module := testutil.NewMockModule("m", nil, nil)
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("P").Input(module))

	result, err := e.Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != engine.RunCancelled || module.Calls() != 0 {
		t.Errorf("expected cancelled run without module calls, got %s, %d calls", result.Status, module.Calls())
	}
}

func TestMaxParallel(t *testing.T) {
	var running, peak atomic.Int32
	slow := engine.ModuleFunc(func(_ context.Context, _ engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return inputs, nil
	})
	b := testutil.NewPipelineBuilder()
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		b.Pipeline(name).Isolated().Process(slow)
	}
	e := newEngine(t, b, engine.WithMaxParallel(2))

	if _, err := e.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent phases, got %d", peak.Load())
	}
}

func TestTriggeredPipelines(t *testing.T) {
	manual := testutil.NewMockModule("manual", nil, nil)
	e := newEngine(t, testutil.NewPipelineBuilder().
		Pipeline("Pages").
		Pipeline("Deploy").Trigger(engine.TriggerManual).Output(manual))

	result, err := e.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if manual.Calls() != 0 || !slices.Equal(result.Outputs.Pipelines(), []string{"Pages"}) {
		t.Errorf("expected manual pipeline to be skipped, got %v", result.Outputs.Pipelines())
	}

	if _, err := e.Execute(context.Background(), engine.WithPipelines("deploy")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if manual.Calls() != 1 {
		t.Errorf("expected manual pipeline to run when requested, got %d calls", manual.Calls())
	}

	result, err = e.Execute(context.Background(), engine.WithPipelines())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Phases) != 0 || result.Status != engine.RunCompleted {
		t.Errorf("expected an empty run, got %d phases", len(result.Phases))
	}
}

func TestExecuteRejectsBadConfiguration(t *testing.T) {
	module := testutil.NewMockModule("m", nil, nil)
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("A", "Missing").Input(module))

	result, err := e.Execute(context.Background())
	if !errors.HasCode(err, errors.ErrCodeConfiguration) || result != nil {
		t.Fatalf("expected CONFIGURATION_ERROR without result, got %v, %v", result, err)
	}
	if module.Calls() != 0 {
		t.Error("expected no module to run")
	}

	e = newEngine(t, testutil.NewPipelineBuilder().Pipeline("A"))
	if _, err := e.Execute(context.Background(), engine.WithPipelines("Z")); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestExecuteSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	module := &testutil.CountModule{EnsureInputDocument: true}
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("P").Process(module))
	if _, err := e.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := make(map[string]int)
	for _, s := range exporter.GetSpans() {
		counts[s.Name]++
	}
	for name, want := range map[string]int{
		"engine.execute": 1,
		"phase.Input":    1,
		"phase.Process":  1,
		"module.count":   1,
	} {
		if counts[name] != want {
			t.Errorf("expected %d %q spans, got %d (%v)", want, name, counts[name], counts)
		}
	}
}

func TestModuleLogsCarrySpanIDs(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "docflow", &buf)
	module := testutil.NewMockModuleFunc("logs", func(_ context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
		ec.Logger().Info("inside module")
		return inputs, nil
	})
	e := newEngine(t, testutil.NewPipelineBuilder().Pipeline("P").Process(module), engine.WithLogger(log))
	if _, err := e.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var span sdktrace.ReadOnlySpan
	for _, s := range exporter.GetSpans().Snapshots() {
		if s.Name() == "module.logs" {
			span = s
		}
	}
	if span == nil {
		t.Fatal("module span not exported")
	}

	var entry map[string]any
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		var m map[string]any
		if json.Unmarshal(line, &m) == nil && m["message"] == "inside module" {
			entry = m
		}
	}
	if entry == nil {
		t.Fatalf("module log line missing in %q", buf.String())
	}
	if entry[logger.FieldTraceID] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", entry[logger.FieldTraceID], span.SpanContext().TraceID())
	}
	if entry[logger.FieldSpanID] != span.SpanContext().SpanID().String() {
		t.Errorf("span_id = %v, want %s", entry[logger.FieldSpanID], span.SpanContext().SpanID())
	}
	if entry[logger.FieldModule] != "logs" || entry[logger.FieldPipeline] != "P" {
		t.Errorf("unexpected node fields: %v", entry)
	}
}

func TestSchedulerRunsRequestAsGiven(t *testing.T) {
	a := testutil.NewCountModule("")
	b := testutil.NewCountModule("")
	ps, err := testutil.NewPipelineBuilder().
		Pipeline("A").Process(a).
		Pipeline("B", "A").Process(b).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	g, err := engine.BuildGraph(ps, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	s := &engine.Scheduler{}

	res, err := s.Execute(context.Background(), g, engine.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Phases) != 0 || res.Status != engine.RunCompleted {
		t.Errorf("empty request: got %d phases, status %s", len(res.Phases), res.Status)
	}

	res, err = s.Execute(context.Background(), g, engine.Request{Pipelines: []string{"B"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range res.Phases {
		if p.Pipeline != "B" {
			t.Errorf("dependency %s/%s ran without being requested", p.Pipeline, p.Phase)
		}
	}
	if len(res.Phases) != 4 {
		t.Errorf("got %d phases, want 4", len(res.Phases))
	}
	if n, _, _ := a.Counts(); n != 0 {
		t.Errorf("A executed %d times", n)
	}
	if n, _, _ := b.Counts(); n != 1 {
		t.Errorf("B executed %d times, want 1", n)
	}
}
