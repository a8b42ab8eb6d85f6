package live

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// fmtInt converts an int to string.
func fmtInt(value int) string {
	return strconv.Itoa(value)
}

// formatProgress renders finished units out of the condition total.
func formatProgress(row ConditionRow) string {
	return fmtInt(row.Counts.Done) + "/" + fmtInt(len(row.Statuses))
}

// formatAccuracy renders the running share of correct verdicts.
func formatAccuracy(row ConditionRow) string {
	graded := row.Counts.Correct + row.Counts.Incorrect + row.Counts.ParseFailure
	if graded == 0 {
		return ""
	}
	return strconv.FormatFloat(100*float64(row.Counts.Correct)/float64(graded), 'f', 1, 64) + "%"
}

// formatActive renders in-flight units as "running+waiting".
func formatActive(row ConditionRow) string {
	if row.Counts.Waiting == 0 {
		return fmtInt(row.Counts.Running)
	}
	return fmtInt(row.Counts.Running) + "+" + fmtInt(row.Counts.Waiting)
}

// formatFailed renders failed and skipped units.
func formatFailed(row ConditionRow) string {
	if row.Counts.Skipped == 0 {
		return fmtInt(row.Counts.Failed)
	}
	return fmtInt(row.Counts.Failed) + " (" + fmtInt(row.Counts.Skipped) + " skipped)"
}

// formatRowDuration returns elapsed or total time for a row.
func formatRowDuration(row ConditionRow, now time.Time) string {
	if !row.FinishedAt.IsZero() && !row.StartedAt.IsZero() {
		return row.FinishedAt.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	if !row.StartedAt.IsZero() {
		return now.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	return ""
}

// formatTokens formats token counts for display.
func formatTokens(tokens int) string {
	if tokens <= 0 {
		return "n/a"
	}
	return fmtInt(tokens)
}

// rowStatus summarizes a row as a single word.
func rowStatus(row ConditionRow) string {
	switch {
	case len(row.Statuses) > 0 && row.Counts.Done == len(row.Statuses) && row.Counts.Failed+row.Counts.Skipped > 0:
		return "incomplete"
	case len(row.Statuses) > 0 && row.Counts.Done == len(row.Statuses):
		return "done"
	case row.Counts.Retrying > 0:
		return "retrying"
	case row.Counts.Running+row.Counts.Waiting > 0:
		return "running"
	default:
		return "queued"
	}
}

// stylizeStatus applies status coloring when enabled.
func stylizeStatus(status string, noColor bool) string {
	if noColor {
		return status
	}
	return statusStyle(status).Render(status)
}

// statusStyle selects a style for a given row status.
func statusStyle(status string) lipgloss.Style {
	color := lipgloss.Color("246")
	switch status {
	case "done":
		color = lipgloss.Color("42")
	case "incomplete":
		color = lipgloss.Color("196")
	case "retrying":
		color = lipgloss.Color("220")
	case "running":
		color = lipgloss.Color("33")
	}
	return lipgloss.NewStyle().Foreground(color)
}
