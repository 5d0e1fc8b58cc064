package process

import "time"

// Result is the captured outcome of a subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process was killed by a signal.
	ExitCode int
	Duration time.Duration
}
