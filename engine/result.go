package engine

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome of a whole run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// PhaseStatus is the outcome of one node.
type PhaseStatus string

const (
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
	// PhaseSkipped marks nodes that never started because a dependency did
	// not complete or another node failed first.
	PhaseSkipped   PhaseStatus = "skipped"
	PhaseCancelled PhaseStatus = "cancelled"
)

// Result holds the outcome of a run.
type Result struct {
	RunID  uuid.UUID
	Status RunStatus
	// Outputs holds the final documents of every pipeline that recorded any.
	Outputs Outputs
	// Phases lists one entry per executed node in graph order.
	Phases   []PhaseResult
	Duration time.Duration
}

// PhaseResult holds the outcome of a single node.
type PhaseResult struct {
	Pipeline  string
	Phase     Phase
	Status    PhaseStatus
	Duration  time.Duration
	Documents int
	Error     error
}

// Completed returns the pipelines whose every phase completed, in
// declaration order.
func (r *Result) Completed() []string {
	var names []string
	incomplete := make(map[string]bool)
	for _, p := range r.Phases {
		if _, seen := incomplete[p.Pipeline]; !seen {
			names = append(names, p.Pipeline)
			incomplete[p.Pipeline] = false
		}
		if p.Status != PhaseCompleted {
			incomplete[p.Pipeline] = true
		}
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !incomplete[name] {
			out = append(out, name)
		}
	}
	return out
}

// Pending returns the nodes that did not complete, as "Pipeline/Phase".
func (r *Result) Pending() []string {
	var out []string
	for _, p := range r.Phases {
		if p.Status != PhaseCompleted {
			out = append(out, p.Pipeline+"/"+p.Phase.String())
		}
	}
	return out
}

// Failed returns the nodes that failed.
func (r *Result) Failed() []PhaseResult {
	var out []PhaseResult
	for _, p := range r.Phases {
		if p.Status == PhaseFailed {
			out = append(out, p)
		}
	}
	return out
}

func (r *Result) count(status PhaseStatus) int {
	n := 0
	for _, p := range r.Phases {
		if p.Status == status {
			n++
		}
	}
	return n
}
