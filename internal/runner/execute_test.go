package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"forgetbench/internal/grade"
	"forgetbench/internal/metrics"
	"forgetbench/internal/prompt"
	"forgetbench/internal/provider"
	"forgetbench/internal/ratelimit"
	"forgetbench/internal/record"
	"forgetbench/internal/retry"
	"forgetbench/internal/runlog"
	"forgetbench/internal/spec"
	"forgetbench/internal/testutil"
)

// TestExecuteOrdersRowsByBackendModeRecord verifies rows are reassembled in
// backend, mode and dataset order even when units complete concurrently.
func TestExecuteOrdersRowsByBackendModeRecord(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)
	records := testRecords()
	gates := ratelimit.BuildGates(map[string]spec.ProviderConfig{"fake": {Concurrency: 4}})
	params := testParams(records, gates,
		testBackend("alpha", answering("Final Answer: A")),
		testBackend("beta", answering("Final Answer: B")),
	)

	run, err := Execute(ctx, params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(run.Failures) != 0 {
		t.Fatalf("expected no failures, got %+v", run.Failures)
	}
	if len(run.Rows) != 2*2*len(records) {
		t.Fatalf("expected %d rows, got %d", 2*2*len(records), len(run.Rows))
	}
	index := 0
	for _, backend := range []string{"alpha", "beta"} {
		for _, mode := range prompt.Modes {
			for _, rec := range records {
				row := run.Rows[index]
				if row.Backend != backend || row.Mode != mode || row.RecordID != rec.ID {
					t.Fatalf("row %d: expected %s/%s/%s, got %s/%s/%s", index, backend, mode, rec.ID, row.Backend, row.Mode, row.RecordID)
				}
				index++
			}
		}
	}
	if !run.Rows[0].IsCorrect || run.Rows[1].IsCorrect {
		t.Fatalf("expected alpha to answer only the first record correctly: %+v", run.Rows[:2])
	}
	if len(run.Usage) != 4 {
		t.Fatalf("expected usage per condition, got %+v", run.Usage)
	}
	if run.Usage[0].Units != len(records) || run.Usage[0].PromptTokens != int64(10*len(records)) {
		t.Fatalf("unexpected usage entry: %+v", run.Usage[0])
	}
	if run.Canceled {
		t.Fatalf("expected run not to be canceled")
	}
}

// TestExecuteRetriesTransientErrors verifies a transient failure is retried
// and the attempt count is recorded on the row.
func TestExecuteRetriesTransientErrors(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)
	var calls atomic.Int32
	client := provider.ClientFunc(func(context.Context, provider.Request) (provider.Completion, error) {
		if calls.Add(1) == 1 {
			return provider.Completion{}, &provider.TransientError{Provider: "fake", StatusCode: 429, Err: errors.New("slow down")}
		}
		return provider.Completion{Text: "Final Answer: A", PromptTokens: 10, CompletionTokens: 2}, nil
	})
	records := testRecords()[:1]
	observer := &recordingObserver{}
	params := testParams(records, nil, testBackend("alpha", client))
	params.Modes = []prompt.Mode{prompt.ModeDirect}
	params.Observer = observer

	run, err := Execute(ctx, params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(run.Rows) != 1 || run.Rows[0].Attempts != 2 {
		t.Fatalf("expected one row with two attempts, got %+v", run.Rows)
	}
	if run.Usage[0].Attempts != 2 || run.Usage[0].Units != 1 {
		t.Fatalf("unexpected usage: %+v", run.Usage)
	}
	types := observer.types()
	for _, want := range []UnitEventType{UnitQueued, UnitWaiting, UnitRunning, UnitRetrying, UnitCorrect} {
		if !containsType(types, want) {
			t.Fatalf("expected %s event, got %v", want, types)
		}
	}
	if !observer.started || !observer.ended {
		t.Fatalf("expected run start and end callbacks")
	}
}

// TestExecuteIsolatesFatalBackend verifies a fatal error aborts only the
// backend that raised it.
func TestExecuteIsolatesFatalBackend(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)
	records := testRecords()
	bad := testBackend("bad", provider.ClientFunc(func(context.Context, provider.Request) (provider.Completion, error) {
		return provider.Completion{}, provider.Fatalf("fake", "invalid api key")
	}))
	bad.Provider = "broken"
	params := testParams(records, nil, bad, testBackend("good", answering("Final Answer: A")))

	run, err := Execute(ctx, params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	fatal := run.FatalErrors()
	if !strings.Contains(fatal["bad"], "backend bad mode direct record r1") {
		t.Fatalf("expected fatal error with context, got %q", fatal["bad"])
	}
	if _, ok := fatal["good"]; ok {
		t.Fatalf("expected good backend to be unaffected")
	}
	kinds := map[runlog.FailureKind]int{}
	for _, failure := range run.Failures {
		if failure.Backend != "bad" {
			t.Fatalf("unexpected failure for %s: %+v", failure.Backend, failure)
		}
		kinds[failure.Kind]++
	}
	if kinds[runlog.FailureFatal] != 1 || kinds[runlog.FailureSkipped] != 2*len(records)-1 {
		t.Fatalf("unexpected failure kinds: %v", kinds)
	}
	if len(run.Rows) != 2*len(records) {
		t.Fatalf("expected good backend rows only, got %d", len(run.Rows))
	}
}

// TestExecuteExhaustedRetries verifies exhaustion fails the unit without
// aborting the backend.
func TestExecuteExhaustedRetries(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)
	client := provider.ClientFunc(func(context.Context, provider.Request) (provider.Completion, error) {
		return provider.Completion{}, &provider.TransientError{Provider: "fake", StatusCode: 503, Err: errors.New("unavailable")}
	})
	records := testRecords()
	backend := testBackend("alpha", client)
	backend.Retry.MaxAttempts = 2
	params := testParams(records, nil, backend)
	params.Modes = []prompt.Mode{prompt.ModeDirect}

	run, err := Execute(ctx, params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(run.FatalErrors()) != 0 {
		t.Fatalf("expected no fatal errors, got %v", run.FatalErrors())
	}
	if len(run.Failures) != len(records) {
		t.Fatalf("expected every unit to fail, got %d", len(run.Failures))
	}
	for _, failure := range run.Failures {
		if failure.Kind != runlog.FailureExhausted || failure.Attempts != 2 {
			t.Fatalf("unexpected failure: %+v", failure)
		}
	}
	if run.Usage[0].Units != 0 || run.Usage[0].Attempts != 2*len(records) {
		t.Fatalf("unexpected usage: %+v", run.Usage)
	}
}

// TestExecuteCanceledRun verifies a canceled run reports canceled units.
func TestExecuteCanceledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.Context(t, 5*time.Second))
	cancel()
	records := testRecords()
	params := testParams(records, nil, testBackend("alpha", answering("Final Answer: A")))

	run, err := Execute(ctx, params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !run.Canceled {
		t.Fatalf("expected canceled run")
	}
	if len(run.Rows) != 0 || len(run.Failures) != 2*len(records) {
		t.Fatalf("expected only failures, got rows=%d failures=%d", len(run.Rows), len(run.Failures))
	}
	for _, failure := range run.Failures {
		if failure.Kind != runlog.FailureCanceled {
			t.Fatalf("expected canceled failure, got %+v", failure)
		}
	}
}

// TestExecuteRejectsInvalidParams verifies parameter validation.
func TestExecuteRejectsInvalidParams(t *testing.T) {
	ctx := testutil.Context(t, time.Second)
	records := testRecords()
	cases := map[string]Params{
		"no records":        testParams(nil, nil, testBackend("a", answering("A"))),
		"no backends":       testParams(records, nil),
		"duplicate backend": testParams(records, nil, testBackend("a", answering("A")), testBackend("a", answering("A"))),
		"nil client":        testParams(records, nil, Backend{ID: "a"}),
	}
	for name, params := range cases {
		if _, err := Execute(ctx, params); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	duplicateModes := testParams(records, nil, testBackend("a", answering("A")))
	duplicateModes.Modes = []prompt.Mode{prompt.ModeDirect, prompt.ModeDirect}
	if _, err := Execute(ctx, duplicateModes); err == nil {
		t.Fatalf("expected duplicate mode error")
	}
}

// TestExecuteStampsRunTimes verifies the run id and timestamps come from the
// injected clock.
func TestExecuteStampsRunTimes(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := testutil.NewFakeClock(start)
	client := provider.ClientFunc(func(context.Context, provider.Request) (provider.Completion, error) {
		clock.Advance(time.Second)
		return provider.Completion{Text: "Final Answer: A", PromptTokens: 1, CompletionTokens: 1}, nil
	})
	records := testRecords()
	params := testParams(records, nil, testBackend("alpha", client))
	params.Modes = []prompt.Mode{prompt.ModeDirect}
	params.RunID = ""
	params.Now = clock.Now
	params.Metrics = metrics.New()

	run, err := Execute(ctx, params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(run.RunID, "20240102T030405Z-") {
		t.Fatalf("expected run id stamped with the clock, got %q", run.RunID)
	}
	if !run.StartedAt.Equal(start) {
		t.Fatalf("expected start %s, got %s", start, run.StartedAt)
	}
	if want := start.Add(time.Duration(len(records)) * time.Second); !run.FinishedAt.Equal(want) {
		t.Fatalf("expected finish %s, got %s", want, run.FinishedAt)
	}
}

func testRecords() []record.GoldRecord {
	return []record.GoldRecord{
		{
			ID:            "r1",
			Domain:        record.DomainChess,
			Rule:          "Rooks move diagonally.",
			Question:      "Which square can the rook on a1 reach?",
			Choices:       record.Choices{{Letter: "A", Text: "b2"}, {Letter: "B", Text: "a2"}},
			CorrectChoice: "A",
		},
		{
			ID:            "r2",
			Domain:        record.DomainMath,
			Rule:          "Addition is subtraction.",
			Question:      "What is 5 + 3?",
			Choices:       record.Choices{{Letter: "A", Text: "8"}, {Letter: "B", Text: "2"}},
			CorrectChoice: "B",
		},
		{
			ID:            "r3",
			Domain:        record.DomainProtocol,
			Rule:          "HTTP 200 means not found.",
			Question:      "What does 200 mean?",
			Choices:       record.Choices{{Letter: "A", Text: "not found"}, {Letter: "B", Text: "ok"}},
			CorrectChoice: "A",
		},
	}
}

func testParams(records []record.GoldRecord, gates *ratelimit.Gates, backends ...Backend) Params {
	return Params{
		RunID:    "20240102T030405Z-abc123",
		Records:  records,
		Modes:    prompt.Modes,
		Backends: backends,
		Gates:    gates,
		RetryOptions: []retry.Option{
			retry.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		},
	}
}

func testBackend(id string, client provider.Client) Backend {
	return Backend{
		ID:       id,
		Provider: "fake",
		Model:    "fake/" + id,
		Client:   client,
		Decoding: provider.Greedy(64),
		Retry:    retry.DefaultPolicy(),
	}
}

func answering(text string) provider.Client {
	return provider.ClientFunc(func(context.Context, provider.Request) (provider.Completion, error) {
		return provider.Completion{Text: text, PromptTokens: 10, CompletionTokens: 2}, nil
	})
}

// recordingObserver collects events for assertions.
type recordingObserver struct {
	mu      sync.Mutex
	events  []UnitEvent
	started bool
	ended   bool
}

func (o *recordingObserver) OnRunStart(string, []grade.Condition, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = true
}

func (o *recordingObserver) OnUnitEvent(event UnitEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) OnRunEnd(Run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended = true
}

func (o *recordingObserver) types() []UnitEventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	types := make([]UnitEventType, 0, len(o.events))
	for _, event := range o.events {
		types = append(types, event.Type)
	}
	return types
}

func containsType(types []UnitEventType, want UnitEventType) bool {
	for _, got := range types {
		if got == want {
			return true
		}
	}
	return false
}
