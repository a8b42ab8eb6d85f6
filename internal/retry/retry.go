package retry

import (
	"context"
	"errors"
	"time"

	"forgetbench/internal/provider"
)

// Attempt describes a failed attempt that will be retried.
type Attempt struct {
	Number int
	Delay  time.Duration
	Err    error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type options struct {
	sleep    SleepFunc
	jitter   func(time.Duration) time.Duration
	onRetry  func(Attempt)
	detached bool
}

// Option customizes Do and Wrap.
type Option func(*options)

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(sleep SleepFunc) Option {
	return func(o *options) { o.sleep = sleep }
}

// WithJitter replaces the jitter source.
func WithJitter(jitter func(time.Duration) time.Duration) Option {
	return func(o *options) { o.jitter = jitter }
}

// WithOnRetry registers a hook called before each backoff sleep.
func WithOnRetry(fn func(Attempt)) Option {
	return func(o *options) { o.onRetry = fn }
}

// WithAttachedCalls lets run cancellation interrupt an in-flight call.
// By default calls run on a context detached from cancellation so a started
// request completes and the loop stops at the next attempt boundary.
func WithAttachedCalls() Option {
	return func(o *options) { o.detached = false }
}

func buildOptions(opts []Option) options {
	o := options{sleep: sleepContext, detached: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Do calls fn until it succeeds, returns a non-transient error, or the
// policy's attempts run out. It returns the number of attempts made.
//
// Transient failures (provider.TransientError) are retried with backoff.
// Anything else, including provider.FatalError, is returned unchanged after
// the first occurrence. Exhaustion yields *ExhaustedRetriesError and
// cancellation between attempts yields *CanceledError.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error, opts ...Option) (int, error) {
	o := buildOptions(opts)
	maxAttempts := policy.attempts()
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, &CanceledError{Attempts: attempt - 1, Err: err}
		}
		callCtx := ctx
		if o.detached {
			callCtx = context.WithoutCancel(ctx)
		}
		err := fn(callCtx)
		if err == nil {
			return attempt, nil
		}
		if !retryable(err) {
			return attempt, err
		}
		last = err
		if attempt == maxAttempts {
			break
		}
		delay := policy.Delay(attempt, o.jitter)
		if o.onRetry != nil {
			o.onRetry(Attempt{Number: attempt, Delay: delay, Err: err})
		}
		if err := o.sleep(ctx, delay); err != nil {
			return attempt, &CanceledError{Attempts: attempt, Err: err}
		}
	}
	return maxAttempts, &ExhaustedRetriesError{Attempts: maxAttempts, Last: last}
}

// retryable reports whether err is a transient failure that has not already
// been through a retry loop of its own.
func retryable(err error) bool {
	var exhausted *ExhaustedRetriesError
	var canceled *CanceledError
	if errors.As(err, &exhausted) || errors.As(err, &canceled) {
		return false
	}
	return provider.IsTransient(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
