package live

import (
	"time"

	"forgetbench/internal/grade"
	"forgetbench/internal/runner"
)

// ConditionRow holds UI state for one (backend, mode) condition.
// Statuses holds the latest status of every record, indexed by dataset position.
type ConditionRow struct {
	Condition  grade.Condition
	Statuses   []runner.UnitEventType
	Retries    int
	Tokens     int
	StartedAt  time.Time
	FinishedAt time.Time
	LastError  string
	Counts     StatusCounts
}

// StatusCounts aggregates counts by status bucket.
type StatusCounts struct {
	Queued       int
	Waiting      int
	Running      int
	Retrying     int
	Done         int
	Correct      int
	Incorrect    int
	ParseFailure int
	Failed       int
	Skipped      int
}

// State captures the live UI state for a run.
type State struct {
	RunID      string
	Records    int
	StartedAt  time.Time
	FinishedAt time.Time
	Canceled   bool
	LastEvent  string
	Rows       []ConditionRow
	Counts     StatusCounts
}

// Total returns the number of units in the run.
func (s State) Total() int {
	return s.Records * len(s.Rows)
}
