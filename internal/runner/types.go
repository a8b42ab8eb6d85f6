package runner

import (
	"io"
	"time"

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

// Backend is one model under evaluation with its decoding and retry policy.
type Backend struct {
	ID       string
	Provider string
	Model    string
	Client   provider.Client
	Decoding provider.Decoding
	Retry    retry.Policy
}

// Params configures Execute.
type Params struct {
	RunID    string
	Records  []record.GoldRecord
	Modes    []prompt.Mode
	Backends []Backend
	Gates    *ratelimit.Gates
	Observer Observer
	Metrics  *metrics.Recorder
	Now      func() time.Time

	// Dataset is copied into Run for provenance.
	Dataset *DatasetInfo

	// RetryOptions are appended to every backend's retry controller.
	RetryOptions []retry.Option

	Verbose          bool
	VerboseWriter    io.Writer
	VerboseLogWriter io.Writer
	NoColor          bool
}

// Run is the outcome of Execute. Rows are ordered by backend, then mode,
// then dataset order. Units without a verdict appear in Failures instead.
type Run struct {
	RunID      string              `json:"run_id"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Dataset    *DatasetInfo        `json:"dataset,omitempty"`
	Conditions []grade.Condition   `json:"conditions"`
	RecordIDs  []string            `json:"record_ids"`
	Records    []record.GoldRecord `json:"-"`
	Backends   []BackendInfo       `json:"backends"`
	Rows       []runlog.Row        `json:"-"`
	Failures   []runlog.Failure    `json:"-"`
	Usage      []ledger.Entry      `json:"-"`
	Canceled   bool                `json:"canceled"`
}

// BackendInfo is the run metadata recorded for each backend.
type BackendInfo struct {
	ID          string  `json:"id"`
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
	FatalError  string  `json:"fatal_error,omitempty"`
}

// FatalErrors returns the fatal error per backend id.
func (run Run) FatalErrors() map[string]string {
	out := map[string]string{}
	for _, info := range run.Backends {
		if info.FatalError != "" {
			out[info.ID] = info.FatalError
		}
	}
	return out
}
