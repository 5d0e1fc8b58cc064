package engine

import (
	"strconv"
	"strings"

	"github.com/kbukum/docflow/errors"
)

// Phase is a position in the fixed sequence every pipeline runs through.
type Phase int

const (
	// PhaseInput reads or creates the pipeline's seed documents. It may not
	// look at other pipelines.
	PhaseInput Phase = iota
	// PhaseProcess transforms documents and may read the Process output of
	// the pipeline's (transitive) dependencies.
	PhaseProcess
	// PhasePostProcess runs after every non-isolated pipeline finished
	// Process and may read the output of every non-isolated pipeline.
	PhasePostProcess
	// PhaseOutput writes the results. It may not look at other pipelines.
	PhaseOutput
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseInput, PhaseProcess, PhasePostProcess, PhaseOutput}

var phaseNames = [...]string{"Input", "Process", "PostProcess", "Output"}

func (p Phase) String() string {
	if !p.Valid() {
		return "Phase(" + strconv.Itoa(int(p)) + ")"
	}
	return phaseNames[p]
}

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	return p >= PhaseInput && p <= PhaseOutput
}

func (p Phase) isEdge() bool {
	return p == PhaseInput || p == PhaseOutput
}

// ParsePhase parses a phase name, ignoring case. "post_process" and
// "post-process" are accepted for PostProcess.
func ParsePhase(s string) (Phase, error) {
	norm := strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(s))
	for i, name := range phaseNames {
		if strings.EqualFold(name, norm) {
			return Phase(i), nil
		}
	}
	return 0, errors.InvalidFormat("phase", strings.Join(phaseNames[:], "|"))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	v, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
