package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forgetbench/internal/analysis"
	"forgetbench/internal/ledger"
	"forgetbench/internal/record"
	"forgetbench/internal/runlog"
)

// RunData is everything persisted for one run.
type RunData struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []record.GoldRecord
	Rows       []runlog.Row
	Summary    analysis.Summary
	Usage      []ledger.Entry
}

// IngestResult reports the ids assigned during ingestion.
type IngestResult struct {
	RunUUID     string
	NewRecords  int
	Verdicts    int
	Conditions  int
	Pairs       int
	DomainStats int
}

// runTables lists the per-run tables cleared when a run is re-ingested.
var runTables = []string{
	"run_records",
	"verdicts",
	"condition_results",
	"paired_results",
	"domain_results",
	"token_usage",
}

// Ingest writes data in one transaction. Ingesting a run id again replaces
// the previous copy; gold records are shared across runs by fingerprint.
func Ingest(ctx context.Context, db *sql.DB, data RunData) (IngestResult, error) {
	if db == nil {
		return IngestResult{}, errors.New("duckdb: db is nil")
	}
	if data.RunID == "" {
		return IngestResult{}, errors.New("duckdb: run id is required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return IngestResult{}, fmt.Errorf("begin ingest: %w", err)
	}
	result, err := ingestTx(ctx, tx, data)
	if err != nil {
		_ = tx.Rollback()
		return IngestResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return IngestResult{}, fmt.Errorf("commit ingest: %w", err)
	}
	return result, nil
}

func ingestTx(ctx context.Context, tx *sql.Tx, data RunData) (IngestResult, error) {
	if err := deleteRun(ctx, tx, data.RunID); err != nil {
		return IngestResult{}, err
	}
	result := IngestResult{RunUUID: uuid.NewString()}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs
		(run_uuid, run_id, started_at, finished_at, records, confidence, unit_failures, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunUUID, data.RunID, nullableTime(data.StartedAt), nullableTime(data.FinishedAt),
		len(data.Records), data.Summary.Confidence, data.Summary.UnitFailures, time.Now().UTC(),
	); err != nil {
		return IngestResult{}, fmt.Errorf("insert run: %w", err)
	}

	created, err := insertRecords(ctx, tx, result.RunUUID, data.Records)
	if err != nil {
		return IngestResult{}, err
	}
	result.NewRecords = created

	for _, row := range data.Rows {
		if _, err := tx.ExecContext(ctx, `INSERT INTO verdicts
			(verdict_id, run_uuid, record_id, backend, mode, domain, raw_response, parsed_letter,
			 is_correct, error_category, prompt_tokens, completion_tokens, attempts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), result.RunUUID, row.RecordID, row.Backend, string(row.Mode), string(row.Domain),
			row.RawResponse, nullableString(row.ParsedLetter), row.IsCorrect, nullableString(row.ErrorCategory),
			row.PromptTokens, row.CompletionTokens, row.Attempts,
		); err != nil {
			return IngestResult{}, fmt.Errorf("insert verdict %s/%s/%s: %w", row.Backend, row.Mode, row.RecordID, err)
		}
		result.Verdicts++
	}

	for _, row := range data.Summary.Conditions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO condition_results
			(result_id, run_uuid, backend, mode, n, correct, accuracy, ci_low, ci_high, binomial_p, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), result.RunUUID, row.Backend, string(row.Mode), row.N, row.Correct,
			nullableFloat(row.Accuracy), nullableFloat(row.CILow), nullableFloat(row.CIHigh),
			nullableFloat(row.BinomialP), nullableText(row.Error),
		); err != nil {
			return IngestResult{}, fmt.Errorf("insert condition %s/%s: %w", row.Backend, row.Mode, err)
		}
		result.Conditions++
	}

	for _, row := range data.Summary.Pairs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO paired_results
			(result_id, run_uuid, backend, both_correct, b, c, both_wrong, delta,
			 mcnemar_statistic, mcnemar_p, mcnemar_method, cohens_h, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), result.RunUUID, row.Backend, row.BothCorrect, row.B, row.C, row.BothWrong,
			nullableFloat(row.Delta), nullableFloat(row.McNemarStatistic), nullableFloat(row.McNemarP),
			nullableText(row.McNemarMethod), nullableFloat(row.CohensH), nullableText(row.Error),
		); err != nil {
			return IngestResult{}, fmt.Errorf("insert pair %s: %w", row.Backend, err)
		}
		result.Pairs++
	}

	for _, row := range data.Summary.Domains {
		if _, err := tx.ExecContext(ctx, `INSERT INTO domain_results
			(run_uuid, backend, mode, domain, n, correct, accuracy)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			result.RunUUID, row.Backend, string(row.Mode), string(row.Domain), row.N, row.Correct, row.Accuracy,
		); err != nil {
			return IngestResult{}, fmt.Errorf("insert domain %s/%s/%s: %w", row.Backend, row.Mode, row.Domain, err)
		}
		result.DomainStats++
	}

	for _, entry := range data.Usage {
		if _, err := tx.ExecContext(ctx, `INSERT INTO token_usage
			(run_uuid, backend, mode, units, attempts, prompt_tokens, completion_tokens)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			result.RunUUID, entry.Backend, entry.Mode, entry.Units, entry.Attempts,
			entry.PromptTokens, entry.CompletionTokens,
		); err != nil {
			return IngestResult{}, fmt.Errorf("insert usage %s/%s: %w", entry.Backend, entry.Mode, err)
		}
	}
	return result, nil
}

// deleteRun removes any earlier copy of runID.
func deleteRun(ctx context.Context, tx *sql.Tx, runID string) error {
	var existing string
	err := tx.QueryRowContext(ctx, `SELECT CAST(run_uuid AS VARCHAR) FROM runs WHERE run_id = ?`, runID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup run %s: %w", runID, err)
	}
	for _, table := range runTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_uuid = ?", existing); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_uuid = ?`, existing); err != nil {
		return fmt.Errorf("clear run: %w", err)
	}
	return nil
}

// insertRecords stores unseen gold records and links every record to the run.
func insertRecords(ctx context.Context, tx *sql.Tx, runUUID string, records []record.GoldRecord) (int, error) {
	created := 0
	for position, rec := range records {
		key, payload, err := FingerprintJSON(rec)
		if err != nil {
			return 0, fmt.Errorf("fingerprint record %s: %w", rec.ID, err)
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO gold_records
			(record_key, record_id, domain, rule, question, correct_choice, payload_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			key, rec.ID, string(rec.Domain), rec.Rule, rec.Question, string(rec.CorrectChoice), string(payload),
		)
		if err != nil {
			return 0, fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			created++
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_records (run_uuid, position, record_key, record_id)
			VALUES (?, ?, ?, ?)`, runUUID, position, key, rec.ID); err != nil {
			return 0, fmt.Errorf("link record %s: %w", rec.ID, err)
		}
	}
	return created, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC()
}
