// Package engine builds and runs pipeline sets.
//
// A pipeline runs its modules through four phases: Input, Process,
// PostProcess and Output. Every (pipeline, phase) pair is a node of a Graph:
//   - a phase depends on the previous phase of the same pipeline
//   - Process depends on the Process phase of every declared dependency
//   - PostProcess of a non-isolated pipeline waits for the Process phase of
//     every other non-isolated pipeline
//
// Engine.Execute resolves the triggered pipelines, then the Scheduler runs
// every node once its dependencies completed, independent nodes
// concurrently. Modules read other pipelines' output through the
// DocumentCollection of their ExecutionContext; Events publishes engine,
// phase and module events that may replace a module's output.
//
//	e := engine.New(engine.WithMaxParallel(4))
//	e.Pipelines = pipelines
//	res, err := e.Execute(ctx, engine.WithPipelines("Pages"))
package engine
