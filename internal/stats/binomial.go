package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"forgetbench/internal/evalerr"
)

// Alternative selects the alternative hypothesis of a binomial test.
type Alternative string

const (
	TwoSided Alternative = "two-sided"
	Less     Alternative = "less"
	Greater  Alternative = "greater"
)

// relativeTolerance mirrors the tie tolerance used when summing outcomes that
// are no more likely than the observed one.
const relativeTolerance = 1 + 1e-7

// BinomialTest returns the exact p-value for observing correct successes in
// n trials under H0: success probability = p0.
func BinomialTest(correct, n int, p0 float64, alternative Alternative) (float64, error) {
	if err := checkCounts(correct, n); err != nil {
		return 0, err
	}
	if !(p0 >= 0 && p0 <= 1) {
		return 0, evalerr.Newf("null proportion must be in [0, 1], got %v", p0)
	}
	if p0 == 0 || p0 == 1 {
		return degenerateBinomial(correct, n, p0, alternative)
	}
	dist := distuv.Binomial{N: float64(n), P: p0}
	k := float64(correct)
	switch alternative {
	case Less:
		return clampProbability(dist.CDF(k)), nil
	case Greater:
		if correct == 0 {
			return 1, nil
		}
		return clampProbability(1 - dist.CDF(k-1)), nil
	case TwoSided:
		observed := dist.Prob(k)
		total := 0.0
		for i := 0; i <= n; i++ {
			if prob := dist.Prob(float64(i)); prob <= observed*relativeTolerance {
				total += prob
			}
		}
		return clampProbability(total), nil
	default:
		return 0, fmt.Errorf("unknown alternative %q", alternative)
	}
}

// PerfectCompliance tests H0: accuracy = 1.0 against the one-sided
// alternative accuracy < 1.0. A perfect score gives p = 1; any miss is
// impossible under the null and gives p = 0.
func PerfectCompliance(correct, n int) (float64, error) {
	return BinomialTest(correct, n, 1.0, Less)
}

// degenerateBinomial handles p0 of 0 or 1, where every trial has a fixed outcome.
func degenerateBinomial(correct, n int, p0 float64, alternative Alternative) (float64, error) {
	expected := 0
	if p0 == 1 {
		expected = n
	}
	var reject bool
	switch alternative {
	case Less:
		reject = correct < expected
	case Greater:
		reject = correct > expected
	case TwoSided:
		reject = correct != expected
	default:
		return 0, fmt.Errorf("unknown alternative %q", alternative)
	}
	if reject {
		return 0, nil
	}
	return 1, nil
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return p
	}
	return math.Max(0, math.Min(1, p))
}
