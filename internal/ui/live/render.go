package live

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the run header line.
func renderHeader(state State, now time.Time, noColor bool) string {
	line := "Run " + state.RunID
	if state.Records > 0 {
		line += " | Records: " + fmtInt(state.Records) + " | Conditions: " + fmtInt(len(state.Rows))
	}
	if !state.StartedAt.IsZero() {
		end := now
		if !state.FinishedAt.IsZero() {
			end = state.FinishedAt
		}
		line += " | Elapsed: " + end.Sub(state.StartedAt).Round(100*time.Millisecond).String()
	}
	if state.Canceled {
		line += " | canceled"
	}
	return stylize(line, noColor, lipgloss.Color("33"))
}

// renderSummary renders the status counts line.
func renderSummary(state State, noColor bool) string {
	counts := state.Counts
	line := "Done: " + fmtInt(counts.Done) + "/" + fmtInt(state.Total()) +
		" Queued: " + fmtInt(counts.Queued) +
		" Waiting: " + fmtInt(counts.Waiting) +
		" Running: " + fmtInt(counts.Running) +
		" Retrying: " + fmtInt(counts.Retrying) +
		" Correct: " + fmtInt(counts.Correct) +
		" Incorrect: " + fmtInt(counts.Incorrect) +
		" Parse: " + fmtInt(counts.ParseFailure) +
		" Failed: " + fmtInt(counts.Failed) +
		" Skipped: " + fmtInt(counts.Skipped)
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderFooter renders the last event line.
func renderFooter(state State, noColor bool) string {
	if state.LastEvent == "" {
		return ""
	}
	return stylize("Last event: "+state.LastEvent, noColor, lipgloss.Color("244"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
