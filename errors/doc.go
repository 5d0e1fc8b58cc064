// Package errors provides the structured error values surfaced by the engine.
//
// Every failure callers can act on is an *AppError carrying a machine-readable
// code, a human-readable message and a details map naming the pipelines,
// phases or rules involved. Configuration and argument errors are raised
// before any module runs; invalid-operation errors are raised to the module
// that made the offending query; execution errors aggregate per-phase failures.
package errors
