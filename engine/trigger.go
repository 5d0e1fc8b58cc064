package engine

import (
	"strings"

	"github.com/kbukum/docflow/errors"
)

// Trigger decides when a pipeline takes part in a run.
type Trigger int

const (
	// TriggerDefault runs the pipeline when no pipelines are requested
	// explicitly, when it is requested, or when a running pipeline depends
	// on it.
	TriggerDefault Trigger = iota
	// TriggerAlways runs the pipeline in every run.
	TriggerAlways
	// TriggerManual runs the pipeline only when it is requested by name.
	// Nothing may depend on a manual pipeline.
	TriggerManual
	// TriggerDependency runs the pipeline only when it is requested or a
	// running pipeline depends on it.
	TriggerDependency
)

var triggerNames = [...]string{"default", "always", "manual", "dependency"}

// TriggerNames returns the textual trigger names accepted by ParseTrigger.
func TriggerNames() []string {
	return triggerNames[:]
}

func (t Trigger) String() string {
	if t < TriggerDefault || t > TriggerDependency {
		return "unknown"
	}
	return triggerNames[t]
}

// ParseTrigger parses a trigger name, ignoring case. The empty string
// parses as TriggerDefault.
func ParseTrigger(s string) (Trigger, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TriggerDefault, nil
	}
	for i, name := range triggerNames {
		if strings.EqualFold(name, s) {
			return Trigger(i), nil
		}
	}
	return 0, errors.InvalidFormat("trigger", strings.Join(triggerNames[:], "|"))
}

// MarshalText implements encoding.TextMarshaler.
func (t Trigger) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Trigger) UnmarshalText(text []byte) error {
	v, err := ParseTrigger(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
