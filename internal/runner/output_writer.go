package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"forgetbench/internal/analysis"
	"forgetbench/internal/ledger"
	"forgetbench/internal/report"
	"forgetbench/internal/runlog"
	"forgetbench/internal/store"
)

// OutputOptions controls the derived outputs of a run.
type OutputOptions struct {
	Analysis analysis.Options
	DuckDB   bool
}

// WriteOutputs writes the raw run files and everything derived from them
// into <root>/<run_id>/.
func WriteOutputs(ctx context.Context, run Run, root string, opts OutputOptions) (OutputPaths, analysis.Summary, error) {
	paths, err := NewOutputPaths(root, run.RunID)
	if err != nil {
		return OutputPaths{}, analysis.Summary{}, err
	}
	if err := os.MkdirAll(paths.RunDir(), 0o755); err != nil {
		return OutputPaths{}, analysis.Summary{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := writeJSON(paths.RunPath(), run); err != nil {
		return OutputPaths{}, analysis.Summary{}, err
	}
	if err := runlog.WriteRows(paths.VerdictsPath(), run.Rows); err != nil {
		return OutputPaths{}, analysis.Summary{}, err
	}
	if err := runlog.WriteFailures(paths.FailuresPath(), run.Failures); err != nil {
		return OutputPaths{}, analysis.Summary{}, err
	}
	usage := run.Usage
	if usage == nil {
		usage = []ledger.Entry{}
	}
	if err := writeJSON(paths.UsagePath(), usage); err != nil {
		return OutputPaths{}, analysis.Summary{}, err
	}
	input := analysis.Input{
		RunID:      run.RunID,
		Records:    run.Records,
		Rows:       run.Rows,
		Failures:   run.Failures,
		Conditions: run.Conditions,
	}
	summary, err := WriteAnalysis(ctx, paths, input, usage, opts)
	if err != nil {
		return OutputPaths{}, analysis.Summary{}, err
	}
	return paths, summary, nil
}

// WriteAnalysis analyzes input and writes summary.json, summary.csv,
// report.html and, when enabled, results.duckdb. run.json must already
// exist in the run directory.
func WriteAnalysis(ctx context.Context, paths OutputPaths, input analysis.Input, usage []ledger.Entry, opts OutputOptions) (analysis.Summary, error) {
	summary := analysis.Analyze(input, opts.Analysis)
	if err := analysis.WriteJSON(paths.SummaryJSONPath(), summary); err != nil {
		return analysis.Summary{}, err
	}
	if err := analysis.WriteCSV(paths.SummaryCSVPath(), summary); err != nil {
		return analysis.Summary{}, err
	}
	page, err := report.RenderHTML(summary, usage)
	if err != nil {
		return analysis.Summary{}, err
	}
	if err := os.WriteFile(paths.ReportPath(), []byte(page), 0o644); err != nil {
		return analysis.Summary{}, fmt.Errorf("write report: %w", err)
	}
	if !opts.DuckDB {
		return summary, nil
	}
	meta, err := runlog.ReadMeta(paths.RunDir())
	if err != nil {
		return analysis.Summary{}, err
	}
	db, err := store.Open(ctx, paths.DatabasePath())
	if err != nil {
		return analysis.Summary{}, err
	}
	_, ingestErr := store.Ingest(ctx, db, store.RunData{
		RunID:      input.RunID,
		StartedAt:  meta.StartedAt,
		FinishedAt: meta.FinishedAt,
		Records:    input.Records,
		Rows:       input.Rows,
		Summary:    summary,
		Usage:      usage,
	})
	closeErr := db.Close()
	if ingestErr != nil {
		return analysis.Summary{}, ingestErr
	}
	if closeErr != nil {
		return analysis.Summary{}, fmt.Errorf("close duckdb: %w", closeErr)
	}
	return summary, nil
}

// writeJSON writes a payload as pretty JSON.
func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
