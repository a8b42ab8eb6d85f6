package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"forgetbench/internal/record"
	"forgetbench/internal/runlog"
)

// LoadVerdicts reads a verdicts.jsonl file.
func LoadVerdicts(path string) ([]runlog.Row, error) {
	return runlog.ReadRows(path)
}

// LoadRun reads a run directory back into an Input. dataset must contain
// every record the run evaluated; records are kept in run order.
func LoadRun(runDir string, dataset []record.GoldRecord) (Input, error) {
	meta, err := runlog.ReadMeta(runDir)
	if err != nil {
		return Input{}, err
	}
	rows, err := LoadVerdicts(filepath.Join(runDir, runlog.VerdictsFileName))
	if err != nil {
		return Input{}, err
	}
	failures, err := runlog.ReadFailures(filepath.Join(runDir, runlog.FailuresFileName))
	if err != nil {
		return Input{}, err
	}
	byID := record.Index(dataset)
	records := make([]record.GoldRecord, 0, len(meta.RecordIDs))
	for _, id := range meta.RecordIDs {
		rec, ok := byID[id]
		if !ok {
			return Input{}, fmt.Errorf("run %s evaluated record %q which is not in the dataset", meta.RunID, id)
		}
		records = append(records, rec)
	}
	return Input{
		RunID:      meta.RunID,
		Records:    records,
		Rows:       rows,
		Failures:   failures,
		Conditions: meta.Conditions,
	}, nil
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(path string, summary Summary) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

var csvHeader = []string{
	"backend", "mode", "n", "correct", "accuracy", "ci_low", "ci_high", "binomial_p",
	"mcnemar_statistic", "mcnemar_p", "mcnemar_method", "cohens_h", "error",
}

// WriteCSV writes one row per (backend, mode). Paired statistics are
// repeated on both rows of a backend.
func WriteCSV(path string, summary Summary) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		_ = file.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	pairs := map[string]PairRow{}
	for _, pair := range summary.Pairs {
		pairs[pair.Backend] = pair
	}
	for _, row := range summary.Conditions {
		pair := pairs[row.Backend]
		message := row.Error
		if message == "" {
			message = pair.Error
		}
		record := []string{
			row.Backend,
			string(row.Mode),
			strconv.Itoa(row.N),
			strconv.Itoa(row.Correct),
			formatFloat(row.Accuracy),
			formatFloat(row.CILow),
			formatFloat(row.CIHigh),
			formatFloat(row.BinomialP),
			formatFloat(pair.McNemarStatistic),
			formatFloat(pair.McNemarP),
			pair.McNemarMethod,
			formatFloat(pair.CohensH),
			message,
		}
		if err := writer.Write(record); err != nil {
			_ = file.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	return file.Close()
}

func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', 6, 64)
}
