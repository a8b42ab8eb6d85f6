package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"forgetbench/internal/analysis"
	"forgetbench/internal/ledger"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2933}
table{border-collapse:collapse;margin:1rem 0}
th,td{border:1px solid #cbd2d9;padding:.3rem .6rem;text-align:left}
th{background:#f0f4f8}
td.error{color:#b42318}
pre{white-space:pre-wrap;background:#f8fafc;padding:.5rem;max-width:60rem}`

// RenderHTML renders the standalone HTML report for a run summary.
func RenderHTML(summary analysis.Summary, usage []ledger.Entry) (string, error) {
	var builder strings.Builder
	if err := Page(summary, usage).Render(context.Background(), &builder); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return builder.String(), nil
}

// Page is the full report document.
func Page(summary analysis.Summary, usage []ledger.Entry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := "forgetbench report " + summary.RunID
		if _, err := fmt.Fprintf(w, "<!doctype html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body>\n",
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<h1>%s</h1>\n<p>%d records, %.0f%% Wilson intervals, %d unit failure(s)</p>\n",
			templ.EscapeString(title), summary.Records, summary.Confidence*100, summary.UnitFailures); err != nil {
			return err
		}
		sections := []templ.Component{
			ConditionsTable(summary.Conditions),
			PairsTable(summary.Pairs),
			DomainsTable(summary.Domains),
			UsageTable(usage),
			SampleFailures(summary.SampleFailures),
		}
		for _, section := range sections {
			if err := section.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</body></html>\n")
		return err
	})
}

// ConditionsTable lists accuracy per condition.
func ConditionsTable(rows []analysis.ConditionRow) templ.Component {
	header := []string{"Backend", "Mode", "N", "Correct", "Accuracy", "CI", "p (perfect compliance)", "Error"}
	body := make([][]cell, 0, len(rows))
	for _, row := range rows {
		body = append(body, []cell{
			{text: row.Backend},
			{text: string(row.Mode)},
			{text: fmt.Sprint(row.N)},
			{text: fmt.Sprint(row.Correct)},
			{text: formatPercent(row.Accuracy)},
			{text: formatInterval(row.CILow, row.CIHigh)},
			{text: formatPValue(row.BinomialP)},
			{text: row.Error, class: "error"},
		})
	}
	return htmlTable("Conditions", header, body)
}

// PairsTable lists the direct versus chain-of-thought comparison per backend.
func PairsTable(rows []analysis.PairRow) templ.Component {
	header := []string{"Backend", "Direct", "CoT", "Delta", "b", "c", "McNemar", "p", "Cohen's h", "Effect", "Error"}
	body := make([][]cell, 0, len(rows))
	for _, row := range rows {
		body = append(body, []cell{
			{text: row.Backend},
			{text: formatPercent(row.DirectAccuracy)},
			{text: formatPercent(row.CoTAccuracy)},
			{text: formatSigned(row.Delta)},
			{text: fmt.Sprint(row.B)},
			{text: fmt.Sprint(row.C)},
			{text: formatStatistic(row.McNemarStatistic) + " " + row.McNemarMethod},
			{text: formatPValue(row.McNemarP)},
			{text: formatSigned(row.CohensH)},
			{text: row.Effect},
			{text: row.Error, class: "error"},
		})
	}
	return htmlTable("Direct vs chain-of-thought", header, body)
}

// DomainsTable lists accuracy per condition and domain.
func DomainsTable(rows []analysis.DomainRow) templ.Component {
	header := []string{"Backend", "Mode", "Domain", "N", "Correct", "Accuracy"}
	body := make([][]cell, 0, len(rows))
	for _, row := range rows {
		accuracy := row.Accuracy
		body = append(body, []cell{
			{text: row.Backend},
			{text: string(row.Mode)},
			{text: string(row.Domain)},
			{text: fmt.Sprint(row.N)},
			{text: fmt.Sprint(row.Correct)},
			{text: formatPercent(&accuracy)},
		})
	}
	return htmlTable("By domain", header, body)
}

// UsageTable lists token usage per condition.
func UsageTable(entries []ledger.Entry) templ.Component {
	header := []string{"Backend", "Mode", "Units", "Attempts", "Prompt tokens", "Completion tokens"}
	body := make([][]cell, 0, len(entries))
	for _, entry := range entries {
		body = append(body, []cell{
			{text: entry.Backend},
			{text: entry.Mode},
			{text: fmt.Sprint(entry.Units)},
			{text: fmt.Sprint(entry.Attempts)},
			{text: fmt.Sprint(entry.PromptTokens)},
			{text: fmt.Sprint(entry.CompletionTokens)},
		})
	}
	return htmlTable("Usage", header, body)
}

// SampleFailures shows the kept incorrect answers with their raw responses.
func SampleFailures(samples []analysis.SampleFailure) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(samples) == 0 {
			return nil
		}
		var builder strings.Builder
		builder.WriteString("<h2>Sample failures</h2>\n")
		for _, sample := range samples {
			fmt.Fprintf(&builder, "<h3>%s / %s / %s: %s</h3>\n",
				templ.EscapeString(sample.Backend), templ.EscapeString(string(sample.Mode)),
				templ.EscapeString(string(sample.Domain)), templ.EscapeString(sample.RecordID))
			fmt.Fprintf(&builder, "<p><strong>Rule:</strong> %s</p>\n<p><strong>Question:</strong> %s</p>\n",
				templ.EscapeString(sample.Rule), templ.EscapeString(sample.Question))
			parsed := string(sample.ParsedLetter)
			if parsed == "" {
				parsed = "none"
			}
			fmt.Fprintf(&builder, "<p>Expected %s, parsed %s, category %s</p>\n<pre>%s</pre>\n",
				templ.EscapeString(string(sample.CorrectChoice)), templ.EscapeString(parsed),
				templ.EscapeString(sample.ErrorCategory), templ.EscapeString(sample.RawResponse))
		}
		_, err := io.WriteString(w, builder.String())
		return err
	})
}

type cell struct {
	text  string
	class string
}

// htmlTable renders a titled table; it renders nothing without rows.
func htmlTable(title string, header []string, rows [][]cell) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(rows) == 0 {
			return nil
		}
		var builder strings.Builder
		fmt.Fprintf(&builder, "<h2>%s</h2>\n<table><thead><tr>", templ.EscapeString(title))
		for _, name := range header {
			fmt.Fprintf(&builder, "<th>%s</th>", templ.EscapeString(name))
		}
		builder.WriteString("</tr></thead><tbody>\n")
		for _, row := range rows {
			builder.WriteString("<tr>")
			for _, c := range row {
				if c.class != "" {
					fmt.Fprintf(&builder, "<td class=\"%s\">%s</td>", c.class, templ.EscapeString(c.text))
					continue
				}
				fmt.Fprintf(&builder, "<td>%s</td>", templ.EscapeString(c.text))
			}
			builder.WriteString("</tr>\n")
		}
		builder.WriteString("</tbody></table>\n")
		_, err := io.WriteString(w, builder.String())
		return err
	})
}
