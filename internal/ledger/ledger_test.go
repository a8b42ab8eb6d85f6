package ledger

import (
	"context"
	"sync"
	"testing"

	"forgetbench/internal/testutil"
	tbtypes "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
)

// fakeClient stores accounts and transfers in memory with TigerBeetle's idempotency rules.
type fakeClient struct {
	mu        sync.Mutex
	accounts  map[tbtypes.Uint128]tbtypes.Account
	transfers map[tbtypes.Uint128]tbtypes.Transfer
	batches   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		accounts:  map[tbtypes.Uint128]tbtypes.Account{},
		transfers: map[tbtypes.Uint128]tbtypes.Transfer{},
	}
}

func (f *fakeClient) CreateAccounts(accounts []tbtypes.Account) ([]tbtypes.AccountEventResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []tbtypes.AccountEventResult
	for i, account := range accounts {
		if _, ok := f.accounts[account.ID]; ok {
			results = append(results, tbtypes.AccountEventResult{Index: uint32(i), Result: tbtypes.AccountExists})
			continue
		}
		f.accounts[account.ID] = account
	}
	return results, nil
}

func (f *fakeClient) CreateTransfers(transfers []tbtypes.Transfer) ([]tbtypes.TransferEventResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	var results []tbtypes.TransferEventResult
	for i, transfer := range transfers {
		if _, ok := f.transfers[transfer.ID]; ok {
			results = append(results, tbtypes.TransferEventResult{Index: uint32(i), Result: tbtypes.TransferExists})
			continue
		}
		f.transfers[transfer.ID] = transfer
		credit := f.accounts[transfer.CreditAccountID]
		credit.CreditsPosted = addUint128(credit.CreditsPosted, transfer.Amount)
		f.accounts[transfer.CreditAccountID] = credit
	}
	return results, nil
}

func (f *fakeClient) LookupAccounts(ids []tbtypes.Uint128) ([]tbtypes.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tbtypes.Account
	for _, id := range ids {
		if account, ok := f.accounts[id]; ok {
			out = append(out, account)
		}
	}
	return out, nil
}

func addUint128(a, b tbtypes.Uint128) tbtypes.Uint128 {
	x, _ := toUint64(a)
	y, _ := toUint64(b)
	return tbtypes.ToUint128(x + y)
}

// TestAccumulatorMerge verifies per-goroutine accumulators merge into sorted totals.
func TestAccumulatorMerge(t *testing.T) {
	left := NewAccumulator()
	left.Add("gpt", "direct", Usage{Units: 1, Attempts: 2, PromptTokens: 10, CompletionTokens: 1})
	right := &Accumulator{}
	right.Add("gpt", "direct", Usage{Units: 1, Attempts: 1, PromptTokens: 12, CompletionTokens: 1})
	right.Add("claude", "chain_of_thought", Usage{Units: 1, Attempts: 1, PromptTokens: 20, CompletionTokens: 40})

	left.Merge(right)
	totals := left.Totals()
	if len(totals) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(totals))
	}
	if totals[0].Backend != "claude" || totals[1].Backend != "gpt" {
		t.Fatalf("unexpected order: %+v", totals)
	}
	if totals[1].Units != 2 || totals[1].Attempts != 3 || totals[1].PromptTokens != 22 {
		t.Fatalf("unexpected merged usage: %+v", totals[1])
	}
	if got := left.Total().Tokens(); got != 84 {
		t.Fatalf("expected 84 tokens, got %d", got)
	}
	if got := len(right.Totals()); got != 2 {
		t.Fatalf("merge modified source: %d entries", got)
	}
}

// TestID128Deterministic verifies labels map to stable, distinct ids.
func TestID128Deterministic(t *testing.T) {
	if ID128("a") != ID128("a") {
		t.Fatalf("expected stable id")
	}
	if PromptAccountID("gpt") == CompletionAccountID("gpt") {
		t.Fatalf("expected distinct account ids")
	}
	if PromptTransferID("run-1", "gpt", "direct") == PromptTransferID("run-2", "gpt", "direct") {
		t.Fatalf("expected run-scoped transfer ids")
	}
	if ID128("x") == tbtypes.ToUint128(0) {
		t.Fatalf("id must never be zero")
	}
}

// TestRecordIsIdempotent verifies re-recording a run does not double count tokens.
func TestRecordIsIdempotent(t *testing.T) {
	client := newFakeClient()
	sink := NewTigerBeetleSink(client)
	entries := []Entry{
		{Backend: "gpt", Mode: "direct", Usage: Usage{PromptTokens: 100, CompletionTokens: 5}},
		{Backend: "gpt", Mode: "chain_of_thought", Usage: Usage{PromptTokens: 120, CompletionTokens: 300}},
	}
	ctx := testutil.Context(t, 0)
	for i := 0; i < 2; i++ {
		if err := sink.Record(ctx, "run-1", entries); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	usage, err := sink.Balance(ctx, "gpt")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if usage.PromptTokens != 220 || usage.CompletionTokens != 305 {
		t.Fatalf("unexpected balance: %+v", usage)
	}
	if len(client.transfers) != 4 {
		t.Fatalf("expected 4 transfers, got %d", len(client.transfers))
	}
}

// TestRecordSkipsEmptyUsage verifies zero-token entries post nothing.
func TestRecordSkipsEmptyUsage(t *testing.T) {
	client := newFakeClient()
	sink := NewTigerBeetleSink(client)
	if err := sink.Record(context.Background(), "run-1", []Entry{{Backend: "gpt", Mode: "direct"}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if client.batches != 0 {
		t.Fatalf("expected no transfer batches, got %d", client.batches)
	}
	if err := sink.Record(context.Background(), "", nil); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

// TestRecordAgainstTigerBeetle verifies the sink against a real cluster when one is available.
func TestRecordAgainstTigerBeetle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping TigerBeetle integration test in short mode")
	}
	instance := testutil.StartTigerBeetle(t)
	sink, err := Dial(instance.ClusterID, instance.Addresses)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sink.Close()
	ctx := testutil.Context(t, 0)
	runID := "it-" + t.Name()
	if err := sink.Record(ctx, runID, []Entry{{Backend: "gpt", Mode: "direct", Usage: Usage{PromptTokens: 7, CompletionTokens: 3}}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	usage, err := sink.Balance(ctx, "gpt")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if usage.PromptTokens < 7 || usage.CompletionTokens < 3 {
		t.Fatalf("unexpected balance: %+v", usage)
	}
}
