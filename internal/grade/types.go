package grade

import (
	"forgetbench/internal/prompt"
	"forgetbench/internal/record"
)

// Category classifies why a verdict is incorrect. It is diagnostic only and
// never affects correctness.
type Category string

const (
	CategoryNone              Category = ""
	CategoryParseFailure      Category = "parse_failure"
	CategoryRuleReversion     Category = "rule_reversion"
	CategoryPartialCompliance Category = "partial_compliance"
	CategoryOther             Category = "other"
)

// Categories lists the error categories in report order.
var Categories = []Category{CategoryParseFailure, CategoryRuleReversion, CategoryPartialCompliance, CategoryOther}

// Condition is one (backend, mode) cell of the experiment grid.
type Condition struct {
	Backend string      `json:"backend"`
	Mode    prompt.Mode `json:"mode"`
}

// String returns "backend/mode".
func (c Condition) String() string {
	return c.Backend + "/" + string(c.Mode)
}

// Verdict is the graded outcome of one response. ParsedLetter is empty when
// no answer could be extracted.
type Verdict struct {
	RecordID string `json:"record_id"`
	Condition
	RawResponse   string        `json:"raw_response"`
	ParsedLetter  record.Letter `json:"parsed_letter"`
	IsCorrect     bool          `json:"is_correct"`
	ErrorCategory Category      `json:"error_category"`
}

// Parsed reports whether a letter was extracted.
func (v Verdict) Parsed() bool {
	return v.ParsedLetter != ""
}

// Method names how a letter was extracted.
type Method string

const (
	MethodNone     Method = ""
	MethodSentinel Method = "sentinel"
	MethodFallback Method = "fallback"
)
