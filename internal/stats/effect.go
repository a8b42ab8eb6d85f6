package stats

import (
	"math"

	"forgetbench/internal/evalerr"
)

// CohensH returns 2·asin(√p1) − 2·asin(√p2). The sign is kept so the
// direction of the effect (p1 relative to p2) survives.
func CohensH(p1, p2 float64) (float64, error) {
	for _, p := range []float64{p1, p2} {
		if !(p >= 0 && p <= 1) {
			return 0, evalerr.Newf("proportion must be in [0, 1], got %v", p)
		}
	}
	return 2*math.Asin(math.Sqrt(p1)) - 2*math.Asin(math.Sqrt(p2)), nil
}

// EffectLabel gives the conventional magnitude label for |h|.
func EffectLabel(h float64) string {
	switch abs := math.Abs(h); {
	case abs < 0.2:
		return "negligible"
	case abs < 0.5:
		return "small"
	case abs < 0.8:
		return "medium"
	default:
		return "large"
	}
}
