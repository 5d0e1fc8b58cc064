package testutil

import (
	"context"
	"sync"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
)

// PhaseDocuments maps a phase to the documents each pipeline saw in it.
type PhaseDocuments map[engine.Phase]map[string][]document.Document

// Get returns the documents recorded for pipeline in phase.
func (p PhaseDocuments) Get(phase engine.Phase, pipeline string) []document.Document {
	return p[phase][pipeline]
}

func (p PhaseDocuments) set(phase engine.Phase, pipeline string, docs []document.Document) {
	if p[phase] == nil {
		p[phase] = make(map[string][]document.Document)
	}
	p[phase][pipeline] = docs
}

// TestResult holds the outcome of RunTest.
type TestResult struct {
	Result *engine.Result
	Err    error
	// Inputs holds each phase's input documents per pipeline.
	Inputs PhaseDocuments
	// Outputs holds each successful phase's output documents per pipeline.
	Outputs PhaseDocuments
	// Started lists nodes as "Pipeline/Phase" in the order they started.
	Started []string
}

// RunTest executes e while recording every phase's inputs and outputs.
func RunTest(ctx context.Context, e *engine.Engine, opts ...engine.RunOption) *TestResult {
	res := &TestResult{Inputs: PhaseDocuments{}, Outputs: PhaseDocuments{}}
	var mu sync.Mutex

	before := engine.Subscribe(e.Events, func(_ context.Context, ev *engine.BeforePhaseExecution) {
		mu.Lock()
		defer mu.Unlock()
		res.Inputs.set(ev.Phase, ev.Pipeline, ev.Inputs)
		res.Started = append(res.Started, ev.Pipeline+"/"+ev.Phase.String())
	})
	after := engine.Subscribe(e.Events, func(_ context.Context, ev *engine.AfterPhaseExecution) {
		if ev.Err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		res.Outputs.set(ev.Phase, ev.Pipeline, ev.Outputs)
	})
	defer e.Events.Unsubscribe(before)
	defer e.Events.Unsubscribe(after)

	res.Result, res.Err = e.Execute(ctx, opts...)
	return res
}
