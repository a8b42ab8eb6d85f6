package aggregate

import (
	"errors"
	"strings"
	"testing"

	"forgetbench/internal/evalerr"
	"forgetbench/internal/grade"
	"forgetbench/internal/prompt"
	"forgetbench/internal/record"
)

var direct = grade.Condition{Backend: "gpt-4.1", Mode: prompt.ModeDirect}
var cot = grade.Condition{Backend: "gpt-4.1", Mode: prompt.ModeChainOfThought}

func testRecords() []record.GoldRecord {
	choices := record.Choices{{Letter: "A", Text: "1"}, {Letter: "B", Text: "2"}, {Letter: "C", Text: "3"}, {Letter: "D", Text: "4"}}
	return []record.GoldRecord{
		{ID: "chess_1", Domain: record.DomainChess, Rule: "r", Question: "q", Choices: choices, CorrectChoice: "A"},
		{ID: "chess_2", Domain: record.DomainChess, Rule: "r", Question: "q", Choices: choices, CorrectChoice: "B"},
		{ID: "math_1", Domain: record.DomainMath, Rule: "r", Question: "q", Choices: choices, CorrectChoice: "C"},
		{ID: "protocol_1", Domain: record.DomainProtocol, Rule: "r", Question: "q", Choices: choices, CorrectChoice: "D"},
	}
}

func verdictsFor(cond grade.Condition, records []record.GoldRecord, responses []string) []grade.Verdict {
	verdicts := make([]grade.Verdict, 0, len(records))
	for i, rec := range records {
		verdicts = append(verdicts, grade.GradeCondition(responses[i], rec, cond))
	}
	return verdicts
}

// TestAggregateThreeCorrectOneParseFailure verifies the four-record end-to-end scenario.
func TestAggregateThreeCorrectOneParseFailure(t *testing.T) {
	records := testRecords()
	verdicts := verdictsFor(direct, records, []string{"A", "B", "C", "no idea"})
	if verdicts[3].ErrorCategory != grade.CategoryParseFailure {
		t.Fatalf("expected parse failure, got %+v", verdicts[3])
	}
	// Arrival order must not matter.
	verdicts[0], verdicts[3] = verdicts[3], verdicts[0]

	result, err := Aggregate(direct, record.IDs(records), verdicts, 0)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if result.N != 4 || result.Correct != 3 || result.Accuracy != 0.75 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !(result.CILow < 0.75 && 0.75 < result.CIHigh && result.CIHigh < 1.0) {
		t.Fatalf("unexpected interval [%v, %v]", result.CILow, result.CIHigh)
	}
	if result.Confidence != 0.95 {
		t.Fatalf("expected default confidence, got %v", result.Confidence)
	}
}

// TestAggregateRejectsIncompleteSets verifies missing, duplicate and foreign verdicts are configuration errors.
func TestAggregateRejectsIncompleteSets(t *testing.T) {
	records := testRecords()
	ids := record.IDs(records)
	full := verdictsFor(direct, records, []string{"A", "B", "C", "D"})

	cases := map[string][]grade.Verdict{
		"missing":   full[:3],
		"duplicate": append(append([]grade.Verdict{}, full...), full[1]),
		"unknown":   append(append([]grade.Verdict{}, full[:3]...), grade.Verdict{RecordID: "ghost", Condition: direct}),
		"wrong condition": append(append([]grade.Verdict{}, full[:3]...),
			grade.GradeCondition("D", records[3], cot)),
		"empty": nil,
	}
	for name, verdicts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Aggregate(direct, ids, verdicts, 0.95)
			var cfgErr *evalerr.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if cfgErr.Backend != "gpt-4.1" || cfgErr.Mode != "direct" {
				t.Fatalf("expected condition context, got %+v", cfgErr)
			}
		})
	}
}

// TestAggregateRejectsEmptyDataset verifies n = 0 is never reported as a zero accuracy.
func TestAggregateRejectsEmptyDataset(t *testing.T) {
	if _, err := Aggregate(direct, nil, nil, 0.95); !errors.Is(err, evalerr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

// TestPairBuildsContingencyTable verifies discordant pairs are counted per direction.
func TestPairBuildsContingencyTable(t *testing.T) {
	records := testRecords()
	ids := record.IDs(records)
	a := verdictsFor(direct, records, []string{"A", "B", "A", "A"})
	b := verdictsFor(cot, records, []string{"Final Answer: A", "Final Answer: C", "Final Answer: C", "Final Answer: D"})
	pair, err := Pair(ids, direct, a, cot, b)
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	want := struct{ both, aOnly, bOnly, none int }{1, 1, 2, 0}
	if pair.Table.BothCorrect != want.both || pair.Table.AOnly != want.aOnly || pair.Table.BOnly != want.bOnly || pair.Table.BothWrong != want.none {
		t.Fatalf("unexpected table %+v", pair.Table)
	}
	if pair.AccuracyA() != 0.5 || pair.AccuracyB() != 0.75 {
		t.Fatalf("unexpected accuracies %v %v", pair.AccuracyA(), pair.AccuracyB())
	}
}

// TestPairRequiresIdenticalRecordSets verifies mismatched sets fail instead of silently dropping.
func TestPairRequiresIdenticalRecordSets(t *testing.T) {
	records := testRecords()
	ids := record.IDs(records)
	a := verdictsFor(direct, records, []string{"A", "B", "C", "D"})
	b := verdictsFor(cot, records[:3], []string{"A", "B", "C"})
	_, err := Pair(ids, direct, a, cot, b)
	if !errors.Is(err, evalerr.ErrConfiguration) || !strings.Contains(err.Error(), "chain_of_thought") {
		t.Fatalf("expected configuration error naming the cot condition, got %v", err)
	}
	other := grade.Condition{Backend: "other", Mode: prompt.ModeChainOfThought}
	if _, err := Pair(ids, direct, a, other, verdictsFor(other, records, []string{"A", "B", "C", "D"})); !errors.Is(err, evalerr.ErrConfiguration) {
		t.Fatalf("expected configuration error for cross-backend pair, got %v", err)
	}
}

// TestByDomainAndCategories verifies the diagnostic breakdowns.
func TestByDomainAndCategories(t *testing.T) {
	records := testRecords()
	verdicts := verdictsFor(direct, records, []string{"A", "C", "C", "nothing"})
	domains := ByDomain(record.Index(records), verdicts)
	if len(domains) != 3 || domains[0].Domain != record.DomainChess || domains[0].N != 2 || domains[0].Correct != 1 {
		t.Fatalf("unexpected domains %+v", domains)
	}
	if domains[2].Domain != record.DomainProtocol || domains[2].Accuracy != 0 {
		t.Fatalf("unexpected protocol row %+v", domains[2])
	}
	counts := Categories(verdicts)
	if counts[grade.CategoryParseFailure] != 1 || counts[grade.CategoryOther] != 1 {
		t.Fatalf("unexpected categories %+v", counts)
	}
}
