// Package aggregate turns a condition's verdicts into a RunResult and joins
// the two modes of a backend into a paired comparison.
package aggregate

import (
	"fmt"

	"forgetbench/internal/evalerr"
	"forgetbench/internal/grade"
	"forgetbench/internal/stats"
)

// RunResult summarizes one condition. It is derived from a verified verdict
// set and never updated piecewise.
type RunResult struct {
	Condition  grade.Condition `json:"condition"`
	N          int             `json:"n"`
	Correct    int             `json:"correct"`
	Accuracy   float64         `json:"accuracy"`
	CILow      float64         `json:"ci_low"`
	CIHigh     float64         `json:"ci_high"`
	Confidence float64         `json:"confidence"`
}

// Index verifies that verdicts cover recordIDs exactly once for cond and
// returns them keyed by record id.
func Index(cond grade.Condition, recordIDs []string, verdicts []grade.Verdict) (map[string]grade.Verdict, error) {
	fail := func(recordID, format string, args ...any) error {
		return &evalerr.ConfigurationError{
			Backend:  cond.Backend,
			Mode:     string(cond.Mode),
			RecordID: recordID,
			Reason:   fmt.Sprintf(format, args...),
		}
	}
	if len(recordIDs) == 0 {
		return nil, fail("", "no records to aggregate")
	}

	known := make(map[string]struct{}, len(recordIDs))
	for _, id := range recordIDs {
		if _, dup := known[id]; dup {
			return nil, fail(id, "record id listed twice in the dataset")
		}
		known[id] = struct{}{}
	}

	byID := make(map[string]grade.Verdict, len(verdicts))
	for _, verdict := range verdicts {
		if verdict.Condition != cond {
			return nil, fail(verdict.RecordID, "verdict belongs to condition %s, expected %s", verdict.Condition, cond)
		}
		if _, ok := known[verdict.RecordID]; !ok {
			return nil, fail(verdict.RecordID, "verdict for unknown record")
		}
		if _, dup := byID[verdict.RecordID]; dup {
			return nil, fail(verdict.RecordID, "duplicate verdict")
		}
		byID[verdict.RecordID] = verdict
	}

	var missing []string
	for _, id := range recordIDs {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fail(missing[0], "incomplete verdict set: %d of %d records missing", len(missing), len(recordIDs))
	}
	return byID, nil
}

// Aggregate computes accuracy and its Wilson interval. It requires exactly
// one verdict per record id; arrival order does not matter.
func Aggregate(cond grade.Condition, recordIDs []string, verdicts []grade.Verdict, confidence float64) (RunResult, error) {
	if confidence == 0 {
		confidence = stats.DefaultConfidence
	}
	byID, err := Index(cond, recordIDs, verdicts)
	if err != nil {
		return RunResult{}, err
	}
	correct := 0
	for _, verdict := range byID {
		if verdict.IsCorrect {
			correct++
		}
	}
	n := len(recordIDs)
	interval, err := stats.Wilson(correct, n, confidence)
	if err != nil {
		return RunResult{}, fmt.Errorf("aggregate %s: %w", cond, err)
	}
	return RunResult{
		Condition:  cond,
		N:          n,
		Correct:    correct,
		Accuracy:   float64(correct) / float64(n),
		CILow:      interval.Low,
		CIHigh:     interval.High,
		Confidence: confidence,
	}, nil
}
