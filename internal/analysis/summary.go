// Package analysis derives the per-condition, paired and per-domain tables
// of a run from its verdicts and unit failures.
package analysis

import (
	"forgetbench/internal/prompt"
	"forgetbench/internal/record"
	"forgetbench/internal/stats"
)

// Options tunes the statistics.
type Options struct {
	Confidence     float64
	ExactThreshold int
}

func (o Options) withDefaults() Options {
	if o.Confidence == 0 {
		o.Confidence = stats.DefaultConfidence
	}
	if o.ExactThreshold == 0 {
		o.ExactThreshold = stats.DefaultExactThreshold
	}
	return o
}

// Summary is the analysis of one run. Rows with Error set carry no statistics.
type Summary struct {
	RunID          string          `json:"run_id"`
	Records        int             `json:"records"`
	Confidence     float64         `json:"confidence"`
	ExactThreshold int             `json:"mcnemar_exact_threshold"`
	Conditions     []ConditionRow  `json:"conditions"`
	Pairs          []PairRow       `json:"pairs"`
	Domains        []DomainRow     `json:"domains"`
	SampleFailures []SampleFailure `json:"sample_failures"`
	UnitFailures   int             `json:"unit_failures"`
}

// ConditionRow is the result of one (backend, mode) condition.
type ConditionRow struct {
	Backend    string         `json:"backend"`
	Mode       prompt.Mode    `json:"mode"`
	N          int            `json:"n"`
	Correct    int            `json:"correct"`
	Accuracy   *float64       `json:"accuracy"`
	CILow      *float64       `json:"ci_low"`
	CIHigh     *float64       `json:"ci_high"`
	BinomialP  *float64       `json:"binomial_p"`
	Categories map[string]int `json:"error_categories,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// OK reports whether the row carries statistics.
func (row ConditionRow) OK() bool {
	return row.Error == ""
}

// PairRow compares the direct and chain-of-thought conditions of a backend.
// B counts records only direct answered correctly, C those only
// chain-of-thought answered correctly. Delta and CohensH are cot minus direct.
type PairRow struct {
	Backend          string   `json:"backend"`
	DirectAccuracy   *float64 `json:"direct_accuracy"`
	CoTAccuracy      *float64 `json:"cot_accuracy"`
	Delta            *float64 `json:"delta"`
	BothCorrect      int      `json:"both_correct"`
	B                int      `json:"b"`
	C                int      `json:"c"`
	BothWrong        int      `json:"both_wrong"`
	McNemarStatistic *float64 `json:"mcnemar_statistic"`
	McNemarP         *float64 `json:"mcnemar_p"`
	McNemarMethod    string   `json:"mcnemar_method,omitempty"`
	CohensH          *float64 `json:"cohens_h"`
	Effect           string   `json:"effect,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// OK reports whether the row carries statistics.
func (row PairRow) OK() bool {
	return row.Error == ""
}

// DomainRow is the accuracy of one condition restricted to a domain.
type DomainRow struct {
	Backend  string        `json:"backend"`
	Mode     prompt.Mode   `json:"mode"`
	Domain   record.Domain `json:"domain"`
	N        int           `json:"n"`
	Correct  int           `json:"correct"`
	Accuracy float64       `json:"accuracy"`
}

// SampleFailure is an incorrect answer kept for manual inspection.
type SampleFailure struct {
	Backend       string        `json:"backend"`
	Mode          prompt.Mode   `json:"mode"`
	Domain        record.Domain `json:"domain"`
	RecordID      string        `json:"record_id"`
	Rule          string        `json:"rule"`
	Question      string        `json:"question"`
	CorrectChoice record.Letter `json:"correct_choice"`
	ParsedLetter  record.Letter `json:"parsed_letter"`
	ErrorCategory string        `json:"error_category"`
	RawResponse   string        `json:"raw_response"`
}

func ptr(v float64) *float64 {
	return &v
}
