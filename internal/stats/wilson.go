// Package stats implements the significance layer: Wilson intervals, exact
// binomial tests, McNemar's paired test and Cohen's h.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"forgetbench/internal/evalerr"
)

// DefaultConfidence is the interval level used when none is configured.
const DefaultConfidence = 0.95

// Interval is a two-sided confidence interval for a proportion.
type Interval struct {
	Low  float64 `json:"ci_low"`
	High float64 `json:"ci_high"`
}

// Contains reports whether p lies inside the closed interval.
func (iv Interval) Contains(p float64) bool {
	return iv.Low <= p && p <= iv.High
}

// Wilson returns the Wilson score interval for correct successes out of n.
// The bounds satisfy 0 <= low <= correct/n <= high <= 1.
func Wilson(correct, n int, confidence float64) (Interval, error) {
	if err := checkCounts(correct, n); err != nil {
		return Interval{}, err
	}
	if !(confidence > 0 && confidence < 1) {
		return Interval{}, evalerr.Newf("confidence must be in (0, 1), got %v", confidence)
	}
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	nf := float64(n)
	p := float64(correct) / nf
	z2 := z * z
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	margin := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom

	low := math.Max(0, center-margin)
	high := math.Min(1, center+margin)
	if correct == 0 {
		low = 0
	}
	if correct == n {
		high = 1
	}
	// Guard against rounding pushing a bound past the point estimate.
	low = math.Min(low, p)
	high = math.Max(high, p)
	return Interval{Low: low, High: high}, nil
}

func checkCounts(correct, n int) error {
	if n <= 0 {
		return evalerr.Newf("n must be positive, got %d", n)
	}
	if correct < 0 || correct > n {
		return evalerr.Newf("correct must be in [0, %d], got %d", n, correct)
	}
	return nil
}
