// Package testutil provides test modules and harnesses for engine tests.
//
//	count := &testutil.CountModule{ValueKey: "Foo", EnsureInputDocument: true}
//	pipelines, err := testutil.NewPipelineBuilder().
//		Pipeline("Data").Process(count).
//		Pipeline("Pages", "Data").PostProcess(testutil.NewMockModule("render", nil, nil)).
//		Build()
//
//	e := engine.New()
//	e.Pipelines = pipelines
//	res := testutil.RunTest(ctx, e)
//	res.Outputs[engine.PhaseProcess]["Data"]
package testutil
