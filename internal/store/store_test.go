package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"forgetbench/internal/analysis"
	"forgetbench/internal/ledger"
	"forgetbench/internal/prompt"
	"forgetbench/internal/record"
	"forgetbench/internal/runlog"
	"forgetbench/internal/store"
	"forgetbench/internal/testutil"
)

// TestSchemaObjectsExist verifies core tables and views are created.
func TestSchemaObjectsExist(t *testing.T) {
	db, ctx := openTestDB(t)
	for _, table := range []string{
		"runs",
		"gold_records",
		"run_records",
		"verdicts",
		"condition_results",
		"paired_results",
		"domain_results",
		"token_usage",
	} {
		count := queryInt(t, ctx, db, "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?", table)
		if count != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}
	viewCount := queryInt(t, ctx, db, "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'v_condition_accuracy' AND table_type = 'VIEW'")
	if viewCount != 1 {
		t.Fatalf("expected view v_condition_accuracy to exist")
	}
}

// TestEnsureSchemaIsRepeatable verifies the DDL can be applied twice.
func TestEnsureSchemaIsRepeatable(t *testing.T) {
	db, ctx := openTestDB(t)
	if err := store.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

// TestIngestWritesAllTables verifies one run lands in every table.
func TestIngestWritesAllTables(t *testing.T) {
	db, ctx := openTestDB(t)
	data := fixtureRun("run-1")
	result, err := store.Ingest(ctx, db, data)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.NewRecords != 2 || result.Verdicts != 3 || result.Conditions != 2 || result.Pairs != 1 {
		t.Fatalf("unexpected ingest result: %+v", result)
	}
	checks := map[string]int{
		"SELECT COUNT(*) FROM runs":                                     1,
		"SELECT COUNT(*) FROM gold_records":                             2,
		"SELECT COUNT(*) FROM run_records":                              2,
		"SELECT COUNT(*) FROM verdicts":                                 3,
		"SELECT COUNT(*) FROM verdicts WHERE parsed_letter IS NULL":     1,
		"SELECT COUNT(*) FROM condition_results":                        2,
		"SELECT COUNT(*) FROM condition_results WHERE accuracy IS NULL": 1,
		"SELECT COUNT(*) FROM paired_results":                           1,
		"SELECT COUNT(*) FROM domain_results":                           1,
		"SELECT COUNT(*) FROM token_usage":                              1,
	}
	for query, want := range checks {
		if got := queryInt(t, ctx, db, query); got != want {
			t.Fatalf("%s: expected %d, got %d", query, want, got)
		}
	}
}

// TestIngestReplacesRun verifies re-ingesting a run id keeps one copy and
// reuses gold records by fingerprint.
func TestIngestReplacesRun(t *testing.T) {
	db, ctx := openTestDB(t)
	if _, err := store.Ingest(ctx, db, fixtureRun("run-1")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := store.Ingest(ctx, db, fixtureRun("run-1"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.NewRecords != 0 {
		t.Fatalf("expected gold records to be reused, got %d new", second.NewRecords)
	}
	if got := queryInt(t, ctx, db, "SELECT COUNT(*) FROM runs WHERE run_id = 'run-1'"); got != 1 {
		t.Fatalf("expected one run row, got %d", got)
	}
	if got := queryInt(t, ctx, db, "SELECT COUNT(*) FROM verdicts"); got != 3 {
		t.Fatalf("expected verdicts to be replaced, got %d", got)
	}
	if _, err := store.Ingest(ctx, db, fixtureRun("run-2")); err != nil {
		t.Fatalf("third ingest: %v", err)
	}
	if got := queryInt(t, ctx, db, "SELECT COUNT(*) FROM gold_records"); got != 2 {
		t.Fatalf("expected shared gold records, got %d", got)
	}
	if got := queryInt(t, ctx, db, "SELECT COUNT(DISTINCT run_id) FROM v_condition_accuracy"); got != 2 {
		t.Fatalf("expected two runs in view, got %d", got)
	}
}

// TestIngestRequiresRunID verifies the run id guard.
func TestIngestRequiresRunID(t *testing.T) {
	db, ctx := openTestDB(t)
	if _, err := store.Ingest(ctx, db, store.RunData{}); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

// TestFingerprintIgnoresKeyOrder verifies canonical JSON sorts map keys.
func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	first, _, err := store.FingerprintJSON(map[string]any{"a": 1, "b": []any{"x"}})
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	second, _, err := store.FingerprintJSON(map[string]any{"b": []any{"x"}, "a": 1})
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if first != second || len(first) != 64 {
		t.Fatalf("unexpected fingerprints %q %q", first, second)
	}
}

func fixtureRun(runID string) store.RunData {
	records := []record.GoldRecord{
		{
			ID:            "chess-1",
			Domain:        record.DomainChess,
			Rule:          "Bishops move like rooks.",
			Question:      "Where can the bishop on c1 go?",
			Choices:       record.Choices{{Letter: "A", Text: "c4"}, {Letter: "B", Text: "d2"}},
			CorrectChoice: "A",
		},
		{
			ID:            "chess-2",
			Domain:        record.DomainChess,
			Rule:          "Pawns move backwards.",
			Question:      "Where can the pawn on e4 go?",
			Choices:       record.Choices{{Letter: "A", Text: "e5"}, {Letter: "B", Text: "e3"}},
			CorrectChoice: "B",
		},
	}
	letterA := "A"
	category := "parse_failure"
	rows := []runlog.Row{
		{RecordID: "chess-1", Backend: "gpt", Mode: prompt.ModeDirect, Domain: record.DomainChess, RawResponse: "A", ParsedLetter: &letterA, IsCorrect: true, PromptTokens: 40, CompletionTokens: 1, Attempts: 1},
		{RecordID: "chess-2", Backend: "gpt", Mode: prompt.ModeDirect, Domain: record.DomainChess, RawResponse: "?", ErrorCategory: &category, PromptTokens: 40, CompletionTokens: 1, Attempts: 1},
		{RecordID: "chess-1", Backend: "gpt", Mode: prompt.ModeChainOfThought, Domain: record.DomainChess, RawResponse: "ANSWER: A", ParsedLetter: &letterA, IsCorrect: true, PromptTokens: 60, CompletionTokens: 30, Attempts: 2},
	}
	accuracy := 0.5
	summary := analysis.Summary{
		RunID:      runID,
		Records:    2,
		Confidence: 0.95,
		Conditions: []analysis.ConditionRow{
			{Backend: "gpt", Mode: prompt.ModeDirect, N: 2, Correct: 1, Accuracy: &accuracy, CILow: &accuracy, CIHigh: &accuracy, BinomialP: &accuracy},
			{Backend: "gpt", Mode: prompt.ModeChainOfThought, Error: "incomplete"},
		},
		Pairs:   []analysis.PairRow{{Backend: "gpt", Error: "incomplete"}},
		Domains: []analysis.DomainRow{{Backend: "gpt", Mode: prompt.ModeDirect, Domain: record.DomainChess, N: 2, Correct: 1, Accuracy: accuracy}},
	}
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return store.RunData{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Records:    records,
		Rows:       rows,
		Summary:    summary,
		Usage: []ledger.Entry{{Backend: "gpt", Mode: "direct", Usage: ledger.Usage{
			Units: 2, Attempts: 2, PromptTokens: 80, CompletionTokens: 2,
		}}},
	}
}

func openTestDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	ctx := testutil.Context(t, 10*time.Second)
	db, err := store.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, ctx
}

func queryInt(t *testing.T, ctx context.Context, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var value int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return value
}
