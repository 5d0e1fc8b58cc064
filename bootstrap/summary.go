package bootstrap

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/docflow/engine"
	"github.com/kbukum/docflow/logger"
)

// RunSummary condenses one engine result.
type RunSummary struct {
	RunID     string
	Status    engine.RunStatus
	Duration  time.Duration
	Pipelines []string
	Documents int
	Phases    map[engine.PhaseStatus]int
	Failed    []string
	Pending   []string
}

// Summary collects the runs of an App for display at shutdown.
type Summary struct {
	service string
	version string

	mu      sync.Mutex
	startup time.Duration
	runs    []RunSummary
}

// NewSummary creates an empty Summary.
func NewSummary(service, version string) *Summary {
	return &Summary{service: service, version: version}
}

// SetStartupDuration records the time spent before the task started.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startup = d
}

// RecordRun adds a run result. Nil results are ignored.
func (s *Summary) RecordRun(res *engine.Result) {
	if res == nil {
		return
	}
	rs := RunSummary{
		RunID:     res.RunID.String(),
		Status:    res.Status,
		Duration:  res.Duration,
		Pipelines: res.Outputs.Pipelines(),
		Phases:    make(map[engine.PhaseStatus]int),
		Pending:   res.Pending(),
	}
	for _, name := range rs.Pipelines {
		rs.Documents += len(res.Outputs.Get(name))
	}
	for _, p := range res.Phases {
		rs.Phases[p.Status]++
	}
	for _, p := range res.Failed() {
		rs.Failed = append(rs.Failed, p.Pipeline+"/"+p.Phase.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, rs)
}

// Runs returns the recorded runs in order.
func (s *Summary) Runs() []RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RunSummary(nil), s.runs...)
}

// Display logs one line per recorded run.
func (s *Summary) Display(log *logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runs {
		fields := logger.Fields(
			"run_id", r.RunID,
			"status", string(r.Status),
			"pipelines", len(r.Pipelines),
			logger.FieldDocuments, r.Documents,
			"duration_ms", r.Duration.Milliseconds(),
		)
		switch r.Status {
		case engine.RunCompleted:
			log.Info("run summary", fields)
		default:
			fields["failed"] = r.Failed
			fields["pending"] = r.Pending
			log.Warn("run summary", fields)
		}
	}
}

// String renders the summary as text.
func (s *Summary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (startup %s)\n", s.service, s.version, s.startup.Round(time.Millisecond))
	for _, r := range s.runs {
		fmt.Fprintf(&b, "run %s: %s in %s, %d pipelines, %d documents\n",
			r.RunID, r.Status, r.Duration.Round(time.Millisecond), len(r.Pipelines), r.Documents)
		for _, status := range []engine.PhaseStatus{engine.PhaseCompleted, engine.PhaseFailed, engine.PhaseSkipped, engine.PhaseCancelled} {
			if n := r.Phases[status]; n > 0 {
				fmt.Fprintf(&b, "  %-9s %d\n", status, n)
			}
		}
		if len(r.Failed) > 0 {
			fmt.Fprintf(&b, "  failed: %s\n", strings.Join(r.Failed, ", "))
		}
	}
	return b.String()
}
