// Package modules provides general purpose modules: control flow (If),
// inline functions (Execute), composition (Concat), filtering, reading other
// pipelines' documents, document creation, content fingerprints, external
// commands (Exec) and retries (Retry).
//
// Every module is an ordinary engine.Module; composite modules run their
// children through engine.ExecutionContext.ExecuteModules so module events
// fire for nested modules too.
//
//	p.Append(engine.PhaseProcess,
//		modules.NewIf(modules.MetadataEquals("draft", true), modules.Discard()).
//			Else(modules.NewFingerprint("")),
//	)
package modules
