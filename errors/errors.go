package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// Configuration creates an AppError for a pipeline set that violates rule.
// The offending pipeline names are recorded under the "pipelines" detail.
func Configuration(rule, message string, pipelines ...string) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: message,
		Details: map[string]any{"rule": rule, "pipelines": pipelines},
	}
}

// Cycle creates a configuration AppError for a dependency cycle. path lists
// the pipelines along the cycle with the first name repeated at the end.
func Cycle(rule string, path []string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf("Pipeline dependency cycle detected: %s", strings.Join(path, " -> ")),
		Details: map[string]any{"rule": rule, "pipelines": path[:len(path)-1], "cycle": path},
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	msg := fmt.Sprintf("The requested %s was not found.", resource)
	if id != "" {
		msg = fmt.Sprintf("The requested %s %q was not found.", resource, id)
	}
	return &AppError{Code: ErrCodeNotFound, Message: msg, Details: details}
}

// AlreadyExists creates a new AppError for a resource that already exists.
func AlreadyExists(resource, id string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("A %s named %q already exists.", resource, id),
		Details: map[string]any{"resource": resource, "id": id},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// InvalidFormat creates a new AppError for an invalid field format.
func InvalidFormat(field, expectedFormat string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidFormat, Message: fmt.Sprintf("Invalid format for %s. Expected: %s", field, expectedFormat),
		Details: map[string]any{"field": field, "expected_format": expectedFormat},
	}
}

// InvalidOperation creates a new AppError for an operation that is not
// permitted in the current state.
func InvalidOperation(reason string) *AppError {
	return &AppError{Code: ErrCodeInvalidOperation, Message: reason}
}

// ExecutionFailed creates a new AppError for a failed run.
func ExecutionFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeExecutionFailed, Message: "One or more pipeline phases failed.",
		Cause: cause,
	}
}

// Cancelled creates a new AppError describing a cancelled operation.
func Cancelled(operation string) *AppError {
	return &AppError{
		Code: ErrCodeCancelled, Message: fmt.Sprintf("The %s was cancelled.", operation),
		Details: map[string]any{"operation": operation},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Cause: cause,
	}
}

// Wrap converts any error to an AppError. AppErrors anywhere in the chain are
// returned as is; other errors become INTERNAL_ERROR with the error as cause.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
