package runner

import (
	"time"

	"forgetbench/internal/grade"
)

// UnitEventType identifies a unit status update for observers.
type UnitEventType string

const (
	// UnitQueued marks a unit known but not yet started.
	UnitQueued UnitEventType = "queued"
	// UnitWaiting marks a unit blocked on its provider gate.
	UnitWaiting UnitEventType = "waiting"
	// UnitRunning marks an active model call.
	UnitRunning UnitEventType = "running"
	// UnitRetrying marks a transient failure with a scheduled retry.
	UnitRetrying UnitEventType = "retrying"
	// UnitCorrect marks a correct verdict.
	UnitCorrect UnitEventType = "correct"
	// UnitIncorrect marks an incorrect verdict with a parsed letter.
	UnitIncorrect UnitEventType = "incorrect"
	// UnitParseFailure marks a response with no extractable letter.
	UnitParseFailure UnitEventType = "parse_failure"
	// UnitFailed marks a unit that produced no verdict.
	UnitFailed UnitEventType = "failed"
	// UnitSkipped marks a unit abandoned after its backend failed fatally.
	UnitSkipped UnitEventType = "skipped"
)

// Terminal reports whether the event ends the unit.
func (t UnitEventType) Terminal() bool {
	switch t {
	case UnitCorrect, UnitIncorrect, UnitParseFailure, UnitFailed, UnitSkipped:
		return true
	default:
		return false
	}
}

// UnitEvent carries a single status update for one (backend, mode, record) unit.
type UnitEvent struct {
	Condition   grade.Condition
	RecordIndex int
	RecordID    string
	Type        UnitEventType
	Attempt     int
	RetryIn     time.Duration
	Tokens      int
	Error       string
	EmittedAt   time.Time
}

// Observer receives run lifecycle events for UI or logging.
// Implementations must be safe for concurrent OnUnitEvent calls.
type Observer interface {
	// OnRunStart signals the start of a run.
	OnRunStart(runID string, conditions []grade.Condition, records int)
	// OnUnitEvent delivers a unit status update.
	OnUnitEvent(event UnitEvent)
	// OnRunEnd signals run completion.
	OnRunEnd(run Run)
}

// verdictEvent maps a verdict to its terminal event type.
func verdictEvent(verdict grade.Verdict) UnitEventType {
	switch {
	case verdict.IsCorrect:
		return UnitCorrect
	case !verdict.Parsed():
		return UnitParseFailure
	default:
		return UnitIncorrect
	}
}
