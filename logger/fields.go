package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRunID     = "run_id"
	FieldPipeline  = "pipeline"
	FieldPhase     = "phase"
	FieldModule    = "module"
	FieldDocuments = "documents"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map from alternating key-value pairs. Non-string keys and
// a trailing key without a value are dropped.
//
//	log.Info("phase done", logger.Fields(logger.FieldPhase, "Process", logger.FieldDocuments, 3))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// DurationFields creates fields for a timed phase or module.
func DurationFields(d time.Duration, documents int) map[string]any {
	return map[string]any{
		FieldDuration:  d.Milliseconds(),
		FieldDocuments: documents,
	}
}
