package stats

import (
	"errors"
	"math"
	"testing"

	"forgetbench/internal/evalerr"
)

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: got %.6f, want %.6f (±%g)", name, got, want, tol)
	}
}

// TestWilsonThreeOfFour verifies the interval for 3/4 contains 0.75 and excludes 1.0.
func TestWilsonThreeOfFour(t *testing.T) {
	iv, err := Wilson(3, 4, DefaultConfidence)
	if err != nil {
		t.Fatalf("wilson: %v", err)
	}
	approx(t, "low", iv.Low, 0.3006, 1e-3)
	approx(t, "high", iv.High, 0.9544, 1e-3)
	if !(iv.Low < 0.75 && 0.75 < iv.High) || iv.Contains(1.0) {
		t.Fatalf("unexpected interval %+v", iv)
	}
}

// TestWilsonBoundsProperty verifies 0 <= low <= p <= high <= 1 for every valid count.
func TestWilsonBoundsProperty(t *testing.T) {
	for _, confidence := range []float64{0.8, 0.95, 0.99} {
		for n := 1; n <= 60; n++ {
			for correct := 0; correct <= n; correct++ {
				iv, err := Wilson(correct, n, confidence)
				if err != nil {
					t.Fatalf("wilson(%d,%d): %v", correct, n, err)
				}
				p := float64(correct) / float64(n)
				if !(0 <= iv.Low && iv.Low <= p && p <= iv.High && iv.High <= 1) {
					t.Fatalf("bounds violated for %d/%d at %.2f: %+v", correct, n, confidence, iv)
				}
			}
		}
	}
}

// TestWilsonRejectsInvalidInput verifies n = 0 and bad confidence are configuration errors.
func TestWilsonRejectsInvalidInput(t *testing.T) {
	if _, err := Wilson(0, 0, DefaultConfidence); !errors.Is(err, evalerr.ErrConfiguration) {
		t.Fatalf("expected configuration error for n=0, got %v", err)
	}
	if _, err := Wilson(5, 4, DefaultConfidence); err == nil {
		t.Fatalf("expected error for correct > n")
	}
	if _, err := Wilson(1, 4, 1.0); err == nil {
		t.Fatalf("expected error for confidence 1.0")
	}
}

// TestPerfectCompliance verifies p = 1 exactly when the score is perfect.
func TestPerfectCompliance(t *testing.T) {
	for n := 1; n <= 20; n++ {
		for correct := 0; correct <= n; correct++ {
			p, err := PerfectCompliance(correct, n)
			if err != nil {
				t.Fatalf("perfect compliance(%d,%d): %v", correct, n, err)
			}
			if (p == 1.0) != (correct == n) {
				t.Fatalf("p=%v for %d/%d", p, correct, n)
			}
		}
	}
	if _, err := PerfectCompliance(0, 0); !errors.Is(err, evalerr.ErrConfiguration) {
		t.Fatalf("expected configuration error for n=0, got %v", err)
	}
}

// TestBinomialTestKnownValues checks exact p-values against hand-computed references.
func TestBinomialTestKnownValues(t *testing.T) {
	p, err := BinomialTest(9, 10, 0.5, TwoSided)
	if err != nil {
		t.Fatalf("two-sided: %v", err)
	}
	approx(t, "two-sided 9/10", p, 22.0/1024.0, 1e-9)

	p, err = BinomialTest(2, 10, 0.5, Less)
	if err != nil {
		t.Fatalf("less: %v", err)
	}
	approx(t, "less 2/10", p, 56.0/1024.0, 1e-9)

	p, err = BinomialTest(8, 10, 0.5, Greater)
	if err != nil {
		t.Fatalf("greater: %v", err)
	}
	approx(t, "greater 8/10", p, 56.0/1024.0, 1e-9)

	p, err = BinomialTest(5, 10, 0.5, TwoSided)
	if err != nil {
		t.Fatalf("two-sided center: %v", err)
	}
	approx(t, "two-sided 5/10", p, 1.0, 1e-9)
}

// TestMcNemarNoDiscordantPairs verifies identical outcomes give p = 1.
func TestMcNemarNoDiscordantPairs(t *testing.T) {
	result, err := McNemar(Contingency{BothCorrect: 7, BothWrong: 3}, DefaultExactThreshold)
	if err != nil {
		t.Fatalf("mcnemar: %v", err)
	}
	if result.PValue != 1.0 || result.Method != McNemarNoDiscordant {
		t.Fatalf("unexpected result %+v", result)
	}
}

// TestMcNemarExact verifies the exact form below the threshold.
func TestMcNemarExact(t *testing.T) {
	result, err := McNemar(Contingency{BothCorrect: 10, AOnly: 1, BOnly: 5, BothWrong: 4}, DefaultExactThreshold)
	if err != nil {
		t.Fatalf("mcnemar: %v", err)
	}
	if result.Method != McNemarExact || result.Statistic != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	approx(t, "exact p", result.PValue, 14.0/64.0, 1e-9)
}

// TestMcNemarChiSquare verifies the continuity-corrected form at or above the threshold.
func TestMcNemarChiSquare(t *testing.T) {
	result, err := McNemar(Contingency{AOnly: 30, BOnly: 10}, DefaultExactThreshold)
	if err != nil {
		t.Fatalf("mcnemar: %v", err)
	}
	if result.Method != McNemarChiSquare {
		t.Fatalf("expected chi-square method, got %+v", result)
	}
	approx(t, "statistic", result.Statistic, 9.025, 1e-9)
	approx(t, "p", result.PValue, 0.00266, 2e-4)
}

// TestMcNemarRejectsEmptyTable verifies an empty table is a configuration error.
func TestMcNemarRejectsEmptyTable(t *testing.T) {
	if _, err := McNemar(Contingency{}, DefaultExactThreshold); !errors.Is(err, evalerr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

// TestCohensHKeepsSign verifies the effect direction is preserved.
func TestCohensHKeepsSign(t *testing.T) {
	h, err := CohensH(1, 0.5)
	if err != nil {
		t.Fatalf("cohens h: %v", err)
	}
	approx(t, "h", h, math.Pi/2, 1e-12)
	reverse, _ := CohensH(0.5, 1)
	approx(t, "reverse h", reverse, -math.Pi/2, 1e-12)
	if same, _ := CohensH(0.3, 0.3); same != 0 {
		t.Fatalf("expected zero effect, got %v", same)
	}
	if _, err := CohensH(1.2, 0.5); err == nil {
		t.Fatalf("expected error for proportion > 1")
	}
	if EffectLabel(-0.9) != "large" || EffectLabel(0.1) != "negligible" {
		t.Fatalf("unexpected effect labels")
	}
}
