package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"forgetbench/internal/evalerr"
)

// DefaultExactThreshold is the discordant-pair count below which the exact
// binomial form of McNemar's test is used.
const DefaultExactThreshold = 25

// Contingency is the 2x2 table of paired binary outcomes for conditions A and B.
type Contingency struct {
	BothCorrect int `json:"both_correct"`
	AOnly       int `json:"a_only"`
	BOnly       int `json:"b_only"`
	BothWrong   int `json:"both_wrong"`
}

// Total returns the number of pairs.
func (c Contingency) Total() int {
	return c.BothCorrect + c.AOnly + c.BOnly + c.BothWrong
}

// Discordant returns the number of pairs whose outcomes differ.
func (c Contingency) Discordant() int {
	return c.AOnly + c.BOnly
}

// McNemarMethod records which form of the test produced a result.
type McNemarMethod string

const (
	McNemarNoDiscordant McNemarMethod = "none"
	McNemarExact        McNemarMethod = "exact"
	McNemarChiSquare    McNemarMethod = "chi2_cc"
)

// McNemarResult is the outcome of McNemar's test.
type McNemarResult struct {
	Statistic float64       `json:"statistic"`
	PValue    float64       `json:"p_value"`
	Method    McNemarMethod `json:"method"`
	B         int           `json:"b"`
	C         int           `json:"c"`
}

// McNemar tests marginal homogeneity of a paired 2x2 table. With fewer than
// exactThreshold discordant pairs it uses the exact two-sided binomial test
// (statistic = min(b, c)); otherwise the continuity-corrected chi-square
// statistic on one degree of freedom. No discordant pairs gives p = 1.
func McNemar(table Contingency, exactThreshold int) (McNemarResult, error) {
	if table.BothCorrect < 0 || table.AOnly < 0 || table.BOnly < 0 || table.BothWrong < 0 {
		return McNemarResult{}, evalerr.Newf("contingency counts must be non-negative: %+v", table)
	}
	if table.Total() == 0 {
		return McNemarResult{}, evalerr.Newf("mcnemar test requires at least one pair")
	}
	b, c := table.AOnly, table.BOnly
	result := McNemarResult{B: b, C: c}
	discordant := b + c
	if discordant == 0 {
		result.Method = McNemarNoDiscordant
		result.PValue = 1
		return result, nil
	}
	if discordant < exactThreshold {
		smaller := min(b, c)
		dist := distuv.Binomial{N: float64(discordant), P: 0.5}
		result.Method = McNemarExact
		result.Statistic = float64(smaller)
		result.PValue = math.Min(1, 2*dist.CDF(float64(smaller)))
		return result, nil
	}
	diff := math.Max(math.Abs(float64(b-c))-1, 0)
	result.Method = McNemarChiSquare
	result.Statistic = diff * diff / float64(discordant)
	result.PValue = distuv.ChiSquared{K: 1}.Survival(result.Statistic)
	return result, nil
}
