// Package runlog reads and writes the per-unit JSON Lines files of a run.
package runlog

import (
	"forgetbench/internal/grade"
	"forgetbench/internal/prompt"
	"forgetbench/internal/record"
)

// Row is one line of verdicts.jsonl: a graded (backend, mode, record) unit.
// ParsedLetter and ErrorCategory are null when absent.
type Row struct {
	RecordID         string        `json:"record_id"`
	Backend          string        `json:"backend"`
	Mode             prompt.Mode   `json:"mode"`
	Domain           record.Domain `json:"domain"`
	RawResponse      string        `json:"raw_response"`
	ParsedLetter     *string       `json:"parsed_letter"`
	IsCorrect        bool          `json:"is_correct"`
	ErrorCategory    *string       `json:"error_category"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Attempts         int           `json:"attempts,omitempty"`
}

// FromVerdict builds a row for verdict.
func FromVerdict(verdict grade.Verdict, domain record.Domain) Row {
	row := Row{
		RecordID:    verdict.RecordID,
		Backend:     verdict.Backend,
		Mode:        verdict.Mode,
		Domain:      domain,
		RawResponse: verdict.RawResponse,
		IsCorrect:   verdict.IsCorrect,
	}
	if verdict.Parsed() {
		letter := string(verdict.ParsedLetter)
		row.ParsedLetter = &letter
	}
	if verdict.ErrorCategory != grade.CategoryNone {
		category := string(verdict.ErrorCategory)
		row.ErrorCategory = &category
	}
	return row
}

// Condition returns the row's (backend, mode).
func (row Row) Condition() grade.Condition {
	return grade.Condition{Backend: row.Backend, Mode: row.Mode}
}

// Verdict converts the row back into a verdict.
func (row Row) Verdict() grade.Verdict {
	verdict := grade.Verdict{
		RecordID:    row.RecordID,
		Condition:   row.Condition(),
		RawResponse: row.RawResponse,
		IsCorrect:   row.IsCorrect,
	}
	if row.ParsedLetter != nil {
		verdict.ParsedLetter = record.Letter(*row.ParsedLetter)
	}
	if row.ErrorCategory != nil {
		verdict.ErrorCategory = grade.Category(*row.ErrorCategory)
	}
	return verdict
}

// Verdicts converts rows into verdicts.
func Verdicts(rows []Row) []grade.Verdict {
	out := make([]grade.Verdict, len(rows))
	for i, row := range rows {
		out[i] = row.Verdict()
	}
	return out
}

// FailureKind says why a unit produced no verdict.
type FailureKind string

const (
	// FailureFatal marks the unit whose call returned a fatal provider error.
	FailureFatal FailureKind = "fatal"
	// FailureExhausted marks a unit whose transient retries ran out.
	FailureExhausted FailureKind = "exhausted_retries"
	// FailureCanceled marks a unit interrupted by run cancellation.
	FailureCanceled FailureKind = "canceled"
	// FailureSkipped marks a unit never attempted because its backend failed fatally.
	FailureSkipped FailureKind = "skipped"
	// FailureRender marks a unit whose prompt could not be rendered.
	FailureRender FailureKind = "render"
)

// Failure is one line of failures.jsonl.
type Failure struct {
	RecordID string      `json:"record_id"`
	Backend  string      `json:"backend"`
	Mode     prompt.Mode `json:"mode"`
	Kind     FailureKind `json:"kind"`
	Attempts int         `json:"attempts"`
	Error    string      `json:"error"`
}

// Condition returns the failure's (backend, mode).
func (f Failure) Condition() grade.Condition {
	return grade.Condition{Backend: f.Backend, Mode: f.Mode}
}
