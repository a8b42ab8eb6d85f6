package report

import (
	"fmt"
	"math"
)

// formatPercent renders a proportion as a percentage, or "-" when absent.
func formatPercent(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *value*100)
}

// formatInterval renders a confidence interval as percentages.
func formatInterval(low, high *float64) string {
	if low == nil || high == nil {
		return "-"
	}
	return fmt.Sprintf("[%.1f, %.1f]", *low*100, *high*100)
}

// formatPValue renders a p-value with scientific notation for tiny values.
func formatPValue(value *float64) string {
	if value == nil {
		return "-"
	}
	if *value != 0 && *value < 0.001 {
		return fmt.Sprintf("%.2e", *value)
	}
	return fmt.Sprintf("%.4f", *value)
}

// formatSigned renders a signed statistic such as Cohen's h or an accuracy delta.
func formatSigned(value *float64) string {
	if value == nil {
		return "-"
	}
	if math.Abs(*value) < 5e-5 {
		return "0.0000"
	}
	return fmt.Sprintf("%+.4f", *value)
}

// formatStatistic renders a test statistic.
func formatStatistic(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *value)
}
