package aggregate

import (
	"fmt"

	"forgetbench/internal/evalerr"
	"forgetbench/internal/grade"
	"forgetbench/internal/stats"
)

// PairedComparison joins two conditions of one backend on record id.
// A is the baseline (direct) and B the treatment (chain of thought).
type PairedComparison struct {
	Backend string            `json:"backend"`
	A       grade.Condition   `json:"a"`
	B       grade.Condition   `json:"b"`
	Table   stats.Contingency `json:"table"`
	N       int               `json:"n"`
}

// AccuracyA returns condition A's accuracy over the paired records.
func (p PairedComparison) AccuracyA() float64 {
	return float64(p.Table.BothCorrect+p.Table.AOnly) / float64(p.N)
}

// AccuracyB returns condition B's accuracy over the paired records.
func (p PairedComparison) AccuracyB() float64 {
	return float64(p.Table.BothCorrect+p.Table.BOnly) / float64(p.N)
}

// Pair joins a and b on record id. Both must cover recordIDs exactly once
// and the conditions must be two modes of the same backend.
func Pair(recordIDs []string, condA grade.Condition, a []grade.Verdict, condB grade.Condition, b []grade.Verdict) (PairedComparison, error) {
	byA, err := Index(condA, recordIDs, a)
	if err != nil {
		return PairedComparison{}, fmt.Errorf("pair: %w", err)
	}
	byB, err := Index(condB, recordIDs, b)
	if err != nil {
		return PairedComparison{}, fmt.Errorf("pair: %w", err)
	}
	if condA.Backend != condB.Backend {
		return PairedComparison{}, &evalerr.ConfigurationError{
			Backend: condA.Backend,
			Reason:  fmt.Sprintf("cannot pair verdicts from different backends (%s vs %s)", condA.Backend, condB.Backend),
		}
	}
	if condA.Mode == condB.Mode {
		return PairedComparison{}, &evalerr.ConfigurationError{
			Backend: condA.Backend,
			Mode:    string(condA.Mode),
			Reason:  "cannot pair a condition with itself",
		}
	}

	var table stats.Contingency
	for _, id := range recordIDs {
		okA, okB := byA[id].IsCorrect, byB[id].IsCorrect
		switch {
		case okA && okB:
			table.BothCorrect++
		case okA:
			table.AOnly++
		case okB:
			table.BOnly++
		default:
			table.BothWrong++
		}
	}
	return PairedComparison{Backend: condA.Backend, A: condA, B: condB, Table: table, N: len(recordIDs)}, nil
}
