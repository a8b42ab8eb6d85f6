package live

import (
	"forgetbench/internal/grade"
	"forgetbench/internal/runner"
)

// EventKind identifies the type of live UI event.
type EventKind int

const (
	// EventRunStart signals the start of a run.
	EventRunStart EventKind = iota
	// EventUnit delivers a unit status update.
	EventUnit
	// EventRunEnd signals run completion.
	EventRunEnd
)

// Event carries a UI update payload.
type Event struct {
	Kind       EventKind
	RunID      string
	Conditions []grade.Condition
	Records    int
	Unit       runner.UnitEvent
	Canceled   bool
	Failures   int
}
