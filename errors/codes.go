package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Build-time errors
const (
	// ErrCodeConfiguration indicates an invalid pipeline set (missing or cyclic
	// dependencies, isolation or trigger violations).
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
)

// Caller misuse
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInvalidFormat indicates a field has an invalid format.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrCodeNotFound indicates the requested pipeline or resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Run-time errors
const (
	// ErrCodeInvalidOperation indicates a query that is not allowed from the
	// current phase or pipeline.
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"
	// ErrCodeExecutionFailed indicates one or more phases failed during a run.
	ErrCodeExecutionFailed ErrorCode = "EXECUTION_FAILED"
	// ErrCodeCancelled indicates the run was cancelled before completing.
	ErrCodeCancelled ErrorCode = "CANCELLED"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Nothing the engine raises is retried by the engine itself; module-level
// retry is the module's own concern.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeConfiguration:    false,
	ErrCodeInvalidInput:     false,
	ErrCodeInvalidOperation: false,
	ErrCodeExecutionFailed:  false,
	ErrCodeCancelled:        false,
	ErrCodeInternal:         false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
