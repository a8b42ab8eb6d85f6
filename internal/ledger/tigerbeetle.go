package ledger

import (
	"context"
	"fmt"

	tb "github.com/tigerbeetle/tigerbeetle-go"
	tbtypes "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
)

const (
	ledgerTokens    uint32 = 1
	codeOperator    uint16 = 1
	codePrompt      uint16 = 2
	codeCompletion  uint16 = 3
	codeRunTransfer uint16 = 10
)

// Client is the subset of the TigerBeetle client the sink uses.
type Client interface {
	CreateAccounts(accounts []tbtypes.Account) ([]tbtypes.AccountEventResult, error)
	CreateTransfers(transfers []tbtypes.Transfer) ([]tbtypes.TransferEventResult, error)
	LookupAccounts(ids []tbtypes.Uint128) ([]tbtypes.Account, error)
}

// TigerBeetleSink posts per-run token usage to a TigerBeetle cluster.
// Account and transfer ids are derived from labels, so re-recording a run is a no-op.
type TigerBeetleSink struct {
	client Client
	close  func()
}

// NewTigerBeetleSink wraps an existing client.
func NewTigerBeetleSink(client Client) *TigerBeetleSink {
	return &TigerBeetleSink{client: client}
}

// Dial connects to a TigerBeetle cluster.
func Dial(clusterID uint64, addresses []string) (*TigerBeetleSink, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("tigerbeetle addresses are required")
	}
	client, err := tb.NewClient(tbtypes.ToUint128(clusterID), addresses)
	if err != nil {
		return nil, fmt.Errorf("create TB client: %w", err)
	}
	return &TigerBeetleSink{client: client, close: client.Close}, nil
}

// Close releases the underlying client when the sink owns it.
func (s *TigerBeetleSink) Close() error {
	if s != nil && s.close != nil {
		s.close()
	}
	return nil
}

// Record provisions token accounts for every backend in entries and posts the
// prompt and completion tokens of each entry as transfers from the operator account.
func (s *TigerBeetleSink) Record(ctx context.Context, runID string, entries []Entry) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := s.ensureAccounts(ctx, entries); err != nil {
		return err
	}
	transfers := make([]tbtypes.Transfer, 0, len(entries)*2)
	for _, entry := range entries {
		if entry.PromptTokens > 0 {
			transfers = append(transfers, tokenTransfer(
				PromptTransferID(runID, entry.Backend, entry.Mode),
				PromptAccountID(entry.Backend),
				entry.PromptTokens,
			))
		}
		if entry.CompletionTokens > 0 {
			transfers = append(transfers, tokenTransfer(
				CompletionTransferID(runID, entry.Backend, entry.Mode),
				CompletionAccountID(entry.Backend),
				entry.CompletionTokens,
			))
		}
	}
	if len(transfers) == 0 {
		return nil
	}
	results, err := callWithContext(ctx, func() ([]tbtypes.TransferEventResult, error) {
		return s.client.CreateTransfers(transfers)
	})
	if err != nil {
		return fmt.Errorf("post usage transfers: %w", err)
	}
	for _, result := range results {
		if result.Result == tbtypes.TransferExists {
			continue
		}
		return fmt.Errorf("create transfer %d: %s", result.Index, result.Result)
	}
	return nil
}

// Balance returns the lifetime token totals recorded for a backend.
func (s *TigerBeetleSink) Balance(ctx context.Context, backend string) (Usage, error) {
	ids := []tbtypes.Uint128{PromptAccountID(backend), CompletionAccountID(backend)}
	accounts, err := callWithContext(ctx, func() ([]tbtypes.Account, error) {
		return s.client.LookupAccounts(ids)
	})
	if err != nil {
		return Usage{}, fmt.Errorf("lookup accounts: %w", err)
	}
	var usage Usage
	for _, account := range accounts {
		credits, err := toUint64(account.CreditsPosted)
		if err != nil {
			return Usage{}, fmt.Errorf("backend %s: %w", backend, err)
		}
		switch account.ID {
		case ids[0]:
			usage.PromptTokens = int64(credits)
		case ids[1]:
			usage.CompletionTokens = int64(credits)
		}
	}
	return usage, nil
}

// ensureAccounts creates the operator account and per-backend token accounts.
func (s *TigerBeetleSink) ensureAccounts(ctx context.Context, entries []Entry) error {
	accounts := []tbtypes.Account{{ID: OperatorAccountID(), Ledger: ledgerTokens, Code: codeOperator}}
	seen := map[string]bool{}
	for _, entry := range entries {
		if seen[entry.Backend] {
			continue
		}
		seen[entry.Backend] = true
		accounts = append(accounts,
			tbtypes.Account{ID: PromptAccountID(entry.Backend), Ledger: ledgerTokens, Code: codePrompt},
			tbtypes.Account{ID: CompletionAccountID(entry.Backend), Ledger: ledgerTokens, Code: codeCompletion},
		)
	}
	results, err := callWithContext(ctx, func() ([]tbtypes.AccountEventResult, error) {
		return s.client.CreateAccounts(accounts)
	})
	if err != nil {
		return fmt.Errorf("create accounts: %w", err)
	}
	for _, result := range results {
		if result.Result == tbtypes.AccountExists {
			continue
		}
		return fmt.Errorf("create account %d: %s", result.Index, result.Result)
	}
	return nil
}

func tokenTransfer(id, credit tbtypes.Uint128, amount int64) tbtypes.Transfer {
	return tbtypes.Transfer{
		ID:              id,
		DebitAccountID:  OperatorAccountID(),
		CreditAccountID: credit,
		Amount:          tbtypes.ToUint128(uint64(amount)),
		Ledger:          ledgerTokens,
		Code:            codeRunTransfer,
	}
}

// callWithContext runs a blocking client call and returns early on cancellation.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		value, err := fn()
		ch <- result{value: value, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		return res.value, res.err
	}
}
