package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"forgetbench/internal/grade"
	"forgetbench/internal/ledger"
)

// File names inside a run directory.
const (
	RunFileName         = "run.json"
	VerdictsFileName    = "verdicts.jsonl"
	FailuresFileName    = "failures.jsonl"
	UsageFileName       = "usage.json"
	SummaryJSONFileName = "summary.json"
	SummaryCSVFileName  = "summary.csv"
	ReportFileName      = "report.html"
	DatabaseFileName    = "results.duckdb"
	LogFileName         = "verbose.log"
)

// Meta is the part of run.json needed to re-analyze a run.
type Meta struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Conditions []grade.Condition `json:"conditions"`
	RecordIDs  []string          `json:"record_ids"`
}

// ReadMeta reads run.json from runDir.
func ReadMeta(runDir string) (Meta, error) {
	path := filepath.Join(runDir, RunFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, fmt.Errorf("read %s: %w", RunFileName, err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("parse %s: %w", RunFileName, err)
	}
	if meta.RunID == "" {
		return Meta{}, fmt.Errorf("%s: run_id is missing", RunFileName)
	}
	return meta, nil
}

// ReadUsage reads usage.json. A missing file yields no entries.
func ReadUsage(path string) ([]ledger.Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var entries []ledger.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return entries, nil
}
