package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// defaultColumns returns the table columns for a standard terminal.
func defaultColumns() []table.Column {
	return []table.Column{
		{Title: "Condition", Width: 36},
		{Title: "Status", Width: 10},
		{Title: "Done", Width: 9},
		{Title: "Queued", Width: 6},
		{Title: "Active", Width: 7},
		{Title: "Retry", Width: 5},
		{Title: "Correct", Width: 7},
		{Title: "Wrong", Width: 5},
		{Title: "Parse", Width: 5},
		{Title: "Failed", Width: 16},
		{Title: "Acc", Width: 6},
		{Title: "Tokens", Width: 8},
		{Title: "Elapsed", Width: 8},
	}
}

// columnsForWidth narrows the condition column on small terminals.
func columnsForWidth(width int) []table.Column {
	columns := defaultColumns()
	fixed := 0
	for _, column := range columns[1:] {
		fixed += column.Width + 2
	}
	available := width - fixed - 2
	switch {
	case available < 12:
		columns[0].Width = 12
	case available < columns[0].Width:
		columns[0].Width = available
	}
	return columns
}

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	if noColor {
		return table.DefaultStyles()
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, noColor bool) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		rows = append(rows, table.Row{
			row.Condition.String(),
			stylizeStatus(rowStatus(row), noColor),
			formatProgress(row),
			fmtInt(row.Counts.Queued),
			formatActive(row),
			fmtInt(row.Retries),
			fmtInt(row.Counts.Correct),
			fmtInt(row.Counts.Incorrect),
			fmtInt(row.Counts.ParseFailure),
			formatFailed(row),
			formatAccuracy(row),
			formatTokens(row.Tokens),
			formatRowDuration(row, now),
		})
	}
	return rows
}
