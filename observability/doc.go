// Package observability provides OpenTelemetry tracing and metrics for
// pipeline runs.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("docflow")
//	cfg.Exporter = observability.ExporterStdout
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "phase.Process")
//	defer span.End()
//
// Metrics:
//
//	mcfg := observability.DefaultMeterConfig("docflow")
//	mp, err := observability.InitMeter(ctx, &mcfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("docflow"))
//	metrics.RecordPhase(ctx, "Pages", "Process", observability.StatusOK, duration)
package observability
