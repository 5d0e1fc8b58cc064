// Package logger provides structured logging for docflow using zerolog.
//
// It supports JSON and console output, level configuration, and scoped
// loggers carrying pipeline, phase and module fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("engine").WithPipeline("Content")
//	log.Info("phase finished", logger.Fields(logger.FieldPhase, "Process"))
package logger
