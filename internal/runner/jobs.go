package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"forgetbench/internal/grade"
	"forgetbench/internal/ledger"
	"forgetbench/internal/metrics"
	"forgetbench/internal/prompt"
	"forgetbench/internal/provider"
	"forgetbench/internal/ratelimit"
	"forgetbench/internal/record"
	"forgetbench/internal/retry"
	"forgetbench/internal/runlog"
)

// backendOutcome is everything one backend produced. It is owned by the
// backend goroutine until Execute merges it.
type backendOutcome struct {
	rows     []runlog.Row
	failures []runlog.Failure
	usage    *ledger.Accumulator
	fatal    error
}

// unitResult captures the outcome of a single (mode, record) job.
type unitResult struct {
	done    bool
	row     runlog.Row
	failure *runlog.Failure
	usage   ledger.Usage
	fatal   error
}

// runBackend evaluates every (mode, record) unit of backend as independent
// jobs and reassembles the results in mode then dataset order.
func runBackend(ctx context.Context, deps runDeps, backend Backend) backendOutcome {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(deps.gates.Workers(backend.Provider))
	gate := deps.gates.For(backend.Provider)

	results := make([][]unitResult, len(deps.modes))
	for m := range deps.modes {
		results[m] = make([]unitResult, len(deps.records))
	}

schedule:
	for m, mode := range deps.modes {
		for r, rec := range deps.records {
			if groupCtx.Err() != nil {
				break schedule
			}
			group.Go(func() error {
				result := executeUnit(ctx, groupCtx, deps, backend, gate, mode, r, rec)
				results[m][r] = result
				return result.fatal
			})
		}
	}
	err := group.Wait()

	outcome := backendOutcome{usage: ledger.NewAccumulator()}
	if err != nil {
		outcome.fatal = err
	}
	for m, mode := range deps.modes {
		cond := grade.Condition{Backend: backend.ID, Mode: mode}
		for r, rec := range deps.records {
			result := results[m][r]
			if !result.done {
				failure := interruptedFailure(ctx, cond, rec.ID, 0, outcome.fatal)
				result.failure = &failure
				deps.emit(UnitEvent{Condition: cond, RecordIndex: r, RecordID: rec.ID, Type: eventForFailure(failure), Error: failure.Error})
			}
			if result.failure != nil {
				outcome.failures = append(outcome.failures, *result.failure)
			} else {
				outcome.rows = append(outcome.rows, result.row)
			}
			if result.usage != (ledger.Usage{}) {
				outcome.usage.Add(backend.ID, string(mode), result.usage)
			}
		}
	}
	return outcome
}

// executeUnit renders, calls and grades one unit. runCtx is the run context;
// unitCtx is additionally cancelled when the backend fails fatally.
func executeUnit(runCtx, unitCtx context.Context, deps runDeps, backend Backend, gate *ratelimit.Gate, mode prompt.Mode, index int, rec record.GoldRecord) unitResult {
	cond := grade.Condition{Backend: backend.ID, Mode: mode}
	base := UnitEvent{Condition: cond, RecordIndex: index, RecordID: rec.ID}
	fail := func(failure runlog.Failure, fatal error) unitResult {
		event := base
		event.Type = eventForFailure(failure)
		event.Attempt = failure.Attempts
		event.Error = failure.Error
		deps.emit(event)
		logVerbose(deps.verbose, deps.verboseWriter, deps.verboseLog, deps.noColor, styleError,
			fmt.Sprintf("%s record=%s %s after %d attempt(s): %s", cond, rec.ID, failure.Kind, failure.Attempts, failure.Error))
		return unitResult{done: true, failure: &failure, fatal: fatal}
	}

	if unitCtx.Err() != nil {
		return fail(interruptedFailure(runCtx, cond, rec.ID, 0, unitCtx.Err()), nil)
	}
	text, err := prompt.Render(rec, mode)
	if err != nil {
		return fail(newFailure(cond, rec.ID, runlog.FailureRender, 0, err), nil)
	}
	logVerbose(deps.verbose, deps.verboseWriter, deps.verboseLog, deps.noColor, styleUnit,
		fmt.Sprintf("%s record=%s (%d/%d) model=%s", cond, rec.ID, index+1, len(deps.records), backend.Model))

	gated := provider.ClientFunc(func(callCtx context.Context, req provider.Request) (provider.Completion, error) {
		waiting := base
		waiting.Type = UnitWaiting
		deps.emit(waiting)
		if err := gate.Acquire(unitCtx); err != nil {
			return provider.Completion{}, err
		}
		defer gate.Release()
		running := base
		running.Type = UnitRunning
		deps.emit(running)
		started := deps.now()
		completion, err := backend.Client.Complete(callCtx, req)
		deps.metrics.ObserveCall(backend.ID, callOutcome(err), deps.now().Sub(started))
		return completion, err
	})
	onRetry := retry.WithOnRetry(func(attempt retry.Attempt) {
		deps.metrics.ObserveRetry(backend.ID)
		event := base
		event.Type = UnitRetrying
		event.Attempt = attempt.Number
		event.RetryIn = attempt.Delay
		event.Error = attempt.Err.Error()
		deps.emit(event)
		logVerbose(deps.verbose, deps.verboseWriter, deps.verboseLog, deps.noColor, styleError,
			fmt.Sprintf("%s record=%s attempt %d failed, retrying in %s: %v", cond, rec.ID, attempt.Number, attempt.Delay.Round(time.Millisecond), attempt.Err))
	})
	client := retry.Wrap(gated, backend.Retry, append(append([]retry.Option{}, deps.retryOptions...), onRetry)...)
	completion, attempts, err := client.CompleteCounted(unitCtx, provider.Request{Prompt: text, Decoding: backend.Decoding})
	if err != nil {
		failure, fatal := classifyFailure(runCtx, unitCtx, cond, rec.ID, attempts, err)
		result := fail(failure, fatal)
		result.usage = ledger.Usage{Attempts: attempts}
		return result
	}

	verdict := grade.GradeCondition(completion.Text, rec, cond)
	row := runlog.FromVerdict(verdict, rec.Domain)
	row.PromptTokens = completion.PromptTokens
	row.CompletionTokens = completion.CompletionTokens
	row.Attempts = attempts

	eventType := verdictEvent(verdict)
	deps.metrics.ObserveVerdict(backend.ID, string(mode), verdictOutcome(eventType))
	done := base
	done.Type = eventType
	done.Attempt = attempts
	done.Tokens = completion.PromptTokens + completion.CompletionTokens
	deps.emit(done)
	logVerbose(deps.verbose, deps.verboseWriter, deps.verboseLog, deps.noColor, styleMetrics,
		fmt.Sprintf("%s record=%s parsed=%s correct=%t category=%s attempts=%d tokens=%d", cond, rec.ID, displayLetter(verdict.ParsedLetter), verdict.IsCorrect, displayCategory(verdict.ErrorCategory), attempts, done.Tokens))

	return unitResult{
		done: true,
		row:  row,
		usage: ledger.Usage{
			Units:            1,
			Attempts:         attempts,
			PromptTokens:     int64(completion.PromptTokens),
			CompletionTokens: int64(completion.CompletionTokens),
		},
	}
}

// classifyFailure turns a retry-controller error into a unit failure. The
// second return value is non-nil when the backend must be aborted.
func classifyFailure(runCtx, unitCtx context.Context, cond grade.Condition, recordID string, attempts int, err error) (runlog.Failure, error) {
	var exhausted *retry.ExhaustedRetriesError
	var canceled *retry.CanceledError
	switch {
	case errors.As(err, &exhausted):
		return newFailure(cond, recordID, runlog.FailureExhausted, attempts, err), nil
	case errors.As(err, &canceled), unitCtx.Err() != nil && isContextError(err):
		return interruptedFailure(runCtx, cond, recordID, attempts, err), nil
	default:
		fatal := fmt.Errorf("backend %s mode %s record %s: %w", cond.Backend, cond.Mode, recordID, err)
		return newFailure(cond, recordID, runlog.FailureFatal, attempts, err), fatal
	}
}

// interruptedFailure reports a unit stopped by run cancellation (canceled)
// or by its backend's fatal error (skipped).
func interruptedFailure(runCtx context.Context, cond grade.Condition, recordID string, attempts int, cause error) runlog.Failure {
	if runCtx.Err() != nil {
		return newFailure(cond, recordID, runlog.FailureCanceled, attempts, runCtx.Err())
	}
	if cause == nil {
		cause = context.Canceled
	}
	return newFailure(cond, recordID, runlog.FailureSkipped, attempts, cause)
}

func newFailure(cond grade.Condition, recordID string, kind runlog.FailureKind, attempts int, err error) runlog.Failure {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return runlog.Failure{
		RecordID: recordID,
		Backend:  cond.Backend,
		Mode:     cond.Mode,
		Kind:     kind,
		Attempts: attempts,
		Error:    message,
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func eventForFailure(failure runlog.Failure) UnitEventType {
	if failure.Kind == runlog.FailureSkipped {
		return UnitSkipped
	}
	return UnitFailed
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case provider.IsTransient(err):
		return metrics.OutcomeTransient
	case isContextError(err):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFatal
	}
}

func verdictOutcome(eventType UnitEventType) string {
	switch eventType {
	case UnitCorrect:
		return metrics.VerdictCorrect
	case UnitParseFailure:
		return metrics.VerdictParseFailure
	default:
		return metrics.VerdictIncorrect
	}
}

func displayLetter(letter record.Letter) string {
	if letter == "" {
		return "none"
	}
	return string(letter)
}

func displayCategory(category grade.Category) string {
	if category == grade.CategoryNone {
		return "none"
	}
	return string(category)
}
