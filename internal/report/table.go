package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"forgetbench/internal/analysis"
)

// RenderTable renders the condition and pair tables for a terminal.
func RenderTable(summary analysis.Summary, noColor bool) string {
	conditions := make([][]string, 0, len(summary.Conditions))
	for _, row := range summary.Conditions {
		conditions = append(conditions, []string{
			row.Backend,
			row.Mode.Short(),
			fmt.Sprint(row.N),
			formatPercent(row.Accuracy),
			formatInterval(row.CILow, row.CIHigh),
			formatPValue(row.BinomialP),
			truncate(row.Error, 60),
		})
	}
	pairs := make([][]string, 0, len(summary.Pairs))
	for _, row := range summary.Pairs {
		pairs = append(pairs, []string{
			row.Backend,
			formatSigned(row.Delta),
			fmt.Sprintf("%d/%d", row.B, row.C),
			formatPValue(row.McNemarP),
			formatSigned(row.CohensH),
			row.Effect,
			truncate(row.Error, 60),
		})
	}
	var sections []string
	sections = append(sections, renderTable(noColor,
		[]string{"Backend", "Mode", "N", "Accuracy", "CI", "p(perfect)", "Error"}, conditions))
	if len(pairs) > 0 {
		sections = append(sections, renderTable(noColor,
			[]string{"Backend", "Δ cot-direct", "b/c", "McNemar p", "h", "Effect", "Error"}, pairs))
	}
	return strings.Join(sections, "\n") + "\n"
}

func renderTable(noColor bool, headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	errorStyle := cellStyle
	border := lipgloss.NewStyle()
	if !noColor {
		headerStyle = headerStyle.Foreground(lipgloss.Color("33"))
		errorStyle = errorStyle.Foreground(lipgloss.Color("160"))
		border = border.Foreground(lipgloss.Color("240"))
	}
	errorColumn := len(headers) - 1
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == errorColumn:
				return errorStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
