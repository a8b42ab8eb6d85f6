package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"forgetbench/internal/grade"
	"forgetbench/internal/ledger"
	"forgetbench/internal/metrics"
	"forgetbench/internal/prompt"
	"forgetbench/internal/ratelimit"
	"forgetbench/internal/record"
	"forgetbench/internal/retry"
)

// runDeps bundles the shared, read-only dependencies of every unit.
type runDeps struct {
	records      []record.GoldRecord
	modes        []prompt.Mode
	gates        *ratelimit.Gates
	observer     Observer
	metrics      *metrics.Recorder
	now          func() time.Time
	retryOptions []retry.Option

	verbose       bool
	verboseWriter io.Writer
	verboseLog    io.Writer
	noColor       bool
}

// Execute evaluates every record under every mode for every backend.
// Backends run concurrently and fail independently: a fatal provider error
// aborts only the backend that raised it. The returned error covers invalid
// parameters only; unit failures are reported in Run.Failures.
func Execute(ctx context.Context, params Params) (Run, error) {
	if err := validateParams(params); err != nil {
		return Run{}, err
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	runID := params.RunID
	if runID == "" {
		id, err := NewRunIDAt(now())
		if err != nil {
			return Run{}, err
		}
		runID = id
	}
	gates := params.Gates
	if gates == nil {
		gates = ratelimit.BuildGates(nil)
	}
	verboseWriter, verboseLog := wrapVerboseWriters(params.VerboseWriter, params.VerboseLogWriter)
	deps := runDeps{
		records:       params.Records,
		modes:         params.Modes,
		gates:         gates,
		observer:      params.Observer,
		metrics:       params.Metrics,
		now:           now,
		retryOptions:  params.RetryOptions,
		verbose:       params.Verbose,
		verboseWriter: verboseWriter,
		verboseLog:    verboseLog,
		noColor:       params.NoColor,
	}

	run := Run{
		RunID:      runID,
		StartedAt:  now().UTC(),
		Dataset:    params.Dataset,
		Conditions: conditionsFor(params.Backends, params.Modes),
		RecordIDs:  record.IDs(params.Records),
		Records:    params.Records,
		Backends:   backendInfos(params.Backends),
	}
	logVerbose(deps.verbose, deps.verboseWriter, deps.verboseLog, deps.noColor, styleUnit,
		fmt.Sprintf("Run %s backends=%d modes=%d records=%d", runID, len(params.Backends), len(params.Modes), len(params.Records)))
	if deps.observer != nil {
		deps.observer.OnRunStart(runID, run.Conditions, len(params.Records))
		for _, cond := range run.Conditions {
			for index, rec := range params.Records {
				deps.emit(UnitEvent{Condition: cond, RecordIndex: index, RecordID: rec.ID, Type: UnitQueued})
			}
		}
	}

	outcomes := make([]backendOutcome, len(params.Backends))
	var group errgroup.Group
	for i, backend := range params.Backends {
		group.Go(func() error {
			outcomes[i] = runBackend(ctx, deps, backend)
			return nil
		})
	}
	_ = group.Wait()

	usage := ledger.NewAccumulator()
	for i, outcome := range outcomes {
		run.Rows = append(run.Rows, outcome.rows...)
		run.Failures = append(run.Failures, outcome.failures...)
		usage.Merge(outcome.usage)
		if outcome.fatal != nil {
			run.Backends[i].FatalError = outcome.fatal.Error()
		}
	}
	run.Usage = usage.Totals()
	run.Canceled = ctx.Err() != nil
	run.FinishedAt = now().UTC()
	logVerbose(deps.verbose, deps.verboseWriter, deps.verboseLog, deps.noColor, styleMetrics,
		fmt.Sprintf("Run %s verdicts=%d failures=%d tokens %s", runID, len(run.Rows), len(run.Failures), formatUsage(run.Usage)))
	if deps.observer != nil {
		deps.observer.OnRunEnd(run)
	}
	return run, nil
}

// emit stamps and forwards a unit event.
func (deps runDeps) emit(event UnitEvent) {
	if deps.observer == nil {
		return
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = deps.now()
	}
	deps.observer.OnUnitEvent(event)
}

func validateParams(params Params) error {
	if len(params.Records) == 0 {
		return fmt.Errorf("no records to evaluate")
	}
	if len(params.Modes) == 0 {
		return fmt.Errorf("no prompt modes selected")
	}
	if len(params.Backends) == 0 {
		return fmt.Errorf("no backends selected")
	}
	seen := map[string]bool{}
	for _, backend := range params.Backends {
		if backend.ID == "" {
			return fmt.Errorf("backend id is required")
		}
		if seen[backend.ID] {
			return fmt.Errorf("duplicate backend %q", backend.ID)
		}
		seen[backend.ID] = true
		if backend.Client == nil {
			return fmt.Errorf("backend %q has no client", backend.ID)
		}
	}
	modes := map[prompt.Mode]bool{}
	for _, mode := range params.Modes {
		if modes[mode] {
			return fmt.Errorf("duplicate mode %q", mode)
		}
		modes[mode] = true
	}
	return nil
}

func conditionsFor(backends []Backend, modes []prompt.Mode) []grade.Condition {
	conditions := make([]grade.Condition, 0, len(backends)*len(modes))
	for _, backend := range backends {
		for _, mode := range modes {
			conditions = append(conditions, grade.Condition{Backend: backend.ID, Mode: mode})
		}
	}
	return conditions
}

func backendInfos(backends []Backend) []BackendInfo {
	infos := make([]BackendInfo, len(backends))
	for i, backend := range backends {
		infos[i] = BackendInfo{
			ID:          backend.ID,
			Provider:    backend.Provider,
			Model:       backend.Model,
			Temperature: backend.Decoding.Temperature,
			TopP:        backend.Decoding.TopP,
			MaxTokens:   backend.Decoding.MaxTokens,
		}
	}
	return infos
}
