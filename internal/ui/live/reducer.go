package live

import (
	"fmt"
	"time"

	"forgetbench/internal/grade"
	"forgetbench/internal/runner"
)

// StartRun returns the initial state for a run with every unit queued.
func StartRun(runID string, conditions []grade.Condition, records int, now time.Time) State {
	state := State{RunID: runID, Records: records, StartedAt: now}
	state.Rows = make([]ConditionRow, 0, len(conditions))
	for _, cond := range conditions {
		row := ConditionRow{Condition: cond, Statuses: make([]runner.UnitEventType, records)}
		for i := range row.Statuses {
			row.Statuses[i] = runner.UnitQueued
		}
		row.Counts = recount(row.Statuses)
		state.Rows = append(state.Rows, row)
	}
	state.Counts = total(state.Rows)
	return state
}

// Reduce applies a unit event to the UI state.
func Reduce(state State, event runner.UnitEvent) State {
	if event.RecordIndex < 0 {
		return state
	}
	index := rowIndex(state, event.Condition)
	if index < 0 {
		state.Rows = append(state.Rows, ConditionRow{Condition: event.Condition})
		index = len(state.Rows) - 1
	}
	row := state.Rows[index]
	if event.RecordIndex >= len(row.Statuses) {
		statuses := make([]runner.UnitEventType, event.RecordIndex+1)
		copy(statuses, row.Statuses)
		for i := len(row.Statuses); i < len(statuses); i++ {
			statuses[i] = runner.UnitQueued
		}
		row.Statuses = statuses
	}
	if !row.Statuses[event.RecordIndex].Terminal() {
		row.Statuses[event.RecordIndex] = event.Type
	}
	if event.Type == runner.UnitRetrying {
		row.Retries++
	}
	if event.Type == runner.UnitRunning && row.StartedAt.IsZero() {
		row.StartedAt = event.EmittedAt
	}
	if event.Type.Terminal() {
		row.Tokens += event.Tokens
		if event.Error != "" {
			row.LastError = event.Error
		}
	}
	row.Counts = recount(row.Statuses)
	if row.Counts.Done == len(row.Statuses) && row.FinishedAt.IsZero() && !event.EmittedAt.IsZero() {
		row.FinishedAt = event.EmittedAt
	}
	state.Rows[index] = row
	state.Counts = total(state.Rows)
	if message := formatLastEvent(event); message != "" {
		state.LastEvent = message
	}
	return state
}

// rowIndex finds the row for a condition.
func rowIndex(state State, cond grade.Condition) int {
	for i, row := range state.Rows {
		if row.Condition == cond {
			return i
		}
	}
	return -1
}

// recount recomputes status counts for one condition.
func recount(statuses []runner.UnitEventType) StatusCounts {
	var counts StatusCounts
	for _, status := range statuses {
		switch status {
		case runner.UnitQueued:
			counts.Queued++
		case runner.UnitWaiting:
			counts.Waiting++
		case runner.UnitRunning:
			counts.Running++
		case runner.UnitRetrying:
			counts.Retrying++
		case runner.UnitCorrect:
			counts.Done++
			counts.Correct++
		case runner.UnitIncorrect:
			counts.Done++
			counts.Incorrect++
		case runner.UnitParseFailure:
			counts.Done++
			counts.ParseFailure++
		case runner.UnitFailed:
			counts.Done++
			counts.Failed++
		case runner.UnitSkipped:
			counts.Done++
			counts.Skipped++
		}
	}
	return counts
}

// total sums counts across rows.
func total(rows []ConditionRow) StatusCounts {
	var sum StatusCounts
	for _, row := range rows {
		c := row.Counts
		sum.Queued += c.Queued
		sum.Waiting += c.Waiting
		sum.Running += c.Running
		sum.Retrying += c.Retrying
		sum.Done += c.Done
		sum.Correct += c.Correct
		sum.Incorrect += c.Incorrect
		sum.ParseFailure += c.ParseFailure
		sum.Failed += c.Failed
		sum.Skipped += c.Skipped
	}
	return sum
}

// formatLastEvent creates a short footer message for the event.
func formatLastEvent(event runner.UnitEvent) string {
	switch event.Type {
	case runner.UnitRetrying:
		return fmt.Sprintf("%s %s attempt %d failed, retry in %s", event.Condition, event.RecordID, event.Attempt, formatDuration(event.RetryIn))
	case runner.UnitFailed:
		return fmt.Sprintf("%s %s failed: %s", event.Condition, event.RecordID, event.Error)
	case runner.UnitParseFailure:
		return fmt.Sprintf("%s %s parse failure", event.Condition, event.RecordID)
	}
	return ""
}

// formatDuration renders a rounded duration for display.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	return duration.Round(100 * time.Millisecond).String()
}
