package errors

// Report is the JSON structure printed by the CLI for a failed run.
type Report struct {
	Error ReportBody `json:"error"`
}

// ReportBody contains the error details of a Report.
type ReportBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     string         `json:"cause,omitempty"`
}

// ToReport converts an AppError to a Report for JSON serialization.
func (e *AppError) ToReport() Report {
	body := ReportBody{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
	if e.Cause != nil {
		body.Cause = e.Cause.Error()
	}
	return Report{Error: body}
}
