package analysis

import (
	"fmt"
	"sort"

	"forgetbench/internal/aggregate"
	"forgetbench/internal/grade"
	"forgetbench/internal/prompt"
	"forgetbench/internal/record"
	"forgetbench/internal/runlog"
	"forgetbench/internal/stats"
)

// SamplesPerGroup is how many incorrect answers are kept per (backend, mode, domain).
const SamplesPerGroup = 2

// Input is everything Analyze needs. Conditions may be nil, in which case
// they are derived from rows and failures.
type Input struct {
	RunID      string
	Records    []record.GoldRecord
	Rows       []runlog.Row
	Failures   []runlog.Failure
	Conditions []grade.Condition
}

// Analyze builds the summary. Each condition is aggregated independently:
// a condition that cannot be aggregated gets an error and the rest of the
// summary is still computed.
func Analyze(in Input, opts Options) Summary {
	opts = opts.withDefaults()
	summary := Summary{
		RunID:          in.RunID,
		Records:        len(in.Records),
		Confidence:     opts.Confidence,
		ExactThreshold: opts.ExactThreshold,
		UnitFailures:   len(in.Failures),
	}
	conditions := in.Conditions
	if len(conditions) == 0 {
		conditions = deriveConditions(in.Rows, in.Failures)
	}
	ids := record.IDs(in.Records)
	byID := record.Index(in.Records)
	verdicts := groupVerdicts(in.Rows)
	failures := groupFailures(in.Failures)
	fatal := fatalByBackend(in.Failures)

	results := map[grade.Condition]aggregate.RunResult{}
	for _, cond := range conditions {
		condVerdicts := verdicts[cond]
		row := ConditionRow{
			Backend:    cond.Backend,
			Mode:       cond.Mode,
			N:          len(condVerdicts),
			Correct:    countCorrect(condVerdicts),
			Categories: categoryCounts(condVerdicts),
		}
		summary.SampleFailures = append(summary.SampleFailures, sampleFailures(byID, ids, condVerdicts)...)
		if message, ok := fatal[cond.Backend]; ok {
			row.Error = "backend aborted: " + message
			summary.Conditions = append(summary.Conditions, row)
			continue
		}
		result, err := aggregate.Aggregate(cond, ids, condVerdicts, opts.Confidence)
		if err != nil {
			row.Error = describeFailure(err, failures[cond])
			summary.Conditions = append(summary.Conditions, row)
			continue
		}
		pValue, err := stats.PerfectCompliance(result.Correct, result.N)
		if err != nil {
			row.Error = err.Error()
			summary.Conditions = append(summary.Conditions, row)
			continue
		}
		results[cond] = result
		row.N = result.N
		row.Correct = result.Correct
		row.Accuracy = ptr(result.Accuracy)
		row.CILow = ptr(result.CILow)
		row.CIHigh = ptr(result.CIHigh)
		row.BinomialP = ptr(pValue)
		summary.Conditions = append(summary.Conditions, row)
		for _, domain := range aggregate.ByDomain(byID, condVerdicts) {
			summary.Domains = append(summary.Domains, DomainRow{
				Backend:  cond.Backend,
				Mode:     cond.Mode,
				Domain:   domain.Domain,
				N:        domain.N,
				Correct:  domain.Correct,
				Accuracy: domain.Accuracy,
			})
		}
	}

	rowsByCond := map[grade.Condition]ConditionRow{}
	for _, row := range summary.Conditions {
		rowsByCond[grade.Condition{Backend: row.Backend, Mode: row.Mode}] = row
	}
	for _, backend := range backendsOf(conditions) {
		direct := grade.Condition{Backend: backend, Mode: prompt.ModeDirect}
		cot := grade.Condition{Backend: backend, Mode: prompt.ModeChainOfThought}
		directRow, hasDirect := rowsByCond[direct]
		cotRow, hasCoT := rowsByCond[cot]
		if !hasDirect || !hasCoT {
			continue
		}
		summary.Pairs = append(summary.Pairs, pairRow(backend, ids, directRow, cotRow, verdicts[direct], verdicts[cot], opts))
	}
	return summary
}

// pairRow runs McNemar's test and Cohen's h for one backend.
func pairRow(backend string, ids []string, directRow, cotRow ConditionRow, direct, cot []grade.Verdict, opts Options) PairRow {
	row := PairRow{Backend: backend, DirectAccuracy: directRow.Accuracy, CoTAccuracy: cotRow.Accuracy}
	switch {
	case !directRow.OK():
		row.Error = "direct: " + directRow.Error
		return row
	case !cotRow.OK():
		row.Error = "chain_of_thought: " + cotRow.Error
		return row
	}
	paired, err := aggregate.Pair(ids, directRow.condition(), direct, cotRow.condition(), cot)
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.BothCorrect = paired.Table.BothCorrect
	row.B = paired.Table.AOnly
	row.C = paired.Table.BOnly
	row.BothWrong = paired.Table.BothWrong
	row.Delta = ptr(paired.AccuracyB() - paired.AccuracyA())
	test, err := stats.McNemar(paired.Table, opts.ExactThreshold)
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.McNemarStatistic = ptr(test.Statistic)
	row.McNemarP = ptr(test.PValue)
	row.McNemarMethod = string(test.Method)
	h, err := stats.CohensH(paired.AccuracyB(), paired.AccuracyA())
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.CohensH = ptr(h)
	row.Effect = stats.EffectLabel(h)
	return row
}

func (row ConditionRow) condition() grade.Condition {
	return grade.Condition{Backend: row.Backend, Mode: row.Mode}
}

// describeFailure explains why a condition could not be aggregated,
// naming the first unit failure when there is one.
func describeFailure(err error, failures []runlog.Failure) string {
	if len(failures) == 0 {
		return err.Error()
	}
	first := failures[0]
	return fmt.Sprintf("%v; %d unit(s) failed, first record %s (%s): %s", err, len(failures), first.RecordID, first.Kind, first.Error)
}

func groupVerdicts(rows []runlog.Row) map[grade.Condition][]grade.Verdict {
	out := map[grade.Condition][]grade.Verdict{}
	for _, row := range rows {
		out[row.Condition()] = append(out[row.Condition()], row.Verdict())
	}
	return out
}

func groupFailures(failures []runlog.Failure) map[grade.Condition][]runlog.Failure {
	out := map[grade.Condition][]runlog.Failure{}
	for _, failure := range failures {
		out[failure.Condition()] = append(out[failure.Condition()], failure)
	}
	return out
}

// fatalByBackend returns the fatal error message of every aborted backend.
func fatalByBackend(failures []runlog.Failure) map[string]string {
	out := map[string]string{}
	for _, failure := range failures {
		if failure.Kind != runlog.FailureFatal {
			continue
		}
		if _, ok := out[failure.Backend]; ok {
			continue
		}
		out[failure.Backend] = fmt.Sprintf("%s (mode %s, record %s)", failure.Error, failure.Mode, failure.RecordID)
	}
	return out
}

// deriveConditions lists conditions by backend first appearance, modes in
// evaluation order.
func deriveConditions(rows []runlog.Row, failures []runlog.Failure) []grade.Condition {
	var backends []string
	modes := map[string]map[prompt.Mode]bool{}
	note := func(backend string, mode prompt.Mode) {
		if _, ok := modes[backend]; !ok {
			backends = append(backends, backend)
			modes[backend] = map[prompt.Mode]bool{}
		}
		modes[backend][mode] = true
	}
	for _, row := range rows {
		note(row.Backend, row.Mode)
	}
	for _, failure := range failures {
		note(failure.Backend, failure.Mode)
	}
	var conditions []grade.Condition
	for _, backend := range backends {
		for _, mode := range orderedModes(modes[backend]) {
			conditions = append(conditions, grade.Condition{Backend: backend, Mode: mode})
		}
	}
	return conditions
}

func orderedModes(set map[prompt.Mode]bool) []prompt.Mode {
	var out []prompt.Mode
	for _, mode := range prompt.Modes {
		if set[mode] {
			out = append(out, mode)
		}
	}
	var extra []prompt.Mode
	for mode := range set {
		known := false
		for _, candidate := range prompt.Modes {
			if candidate == mode {
				known = true
			}
		}
		if !known {
			extra = append(extra, mode)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func backendsOf(conditions []grade.Condition) []string {
	seen := map[string]bool{}
	var out []string
	for _, cond := range conditions {
		if !seen[cond.Backend] {
			seen[cond.Backend] = true
			out = append(out, cond.Backend)
		}
	}
	return out
}

func countCorrect(verdicts []grade.Verdict) int {
	correct := 0
	for _, verdict := range verdicts {
		if verdict.IsCorrect {
			correct++
		}
	}
	return correct
}

func categoryCounts(verdicts []grade.Verdict) map[string]int {
	counts := aggregate.Categories(verdicts)
	if len(counts) == 0 {
		return nil
	}
	out := make(map[string]int, len(counts))
	for category, count := range counts {
		out[string(category)] = count
	}
	return out
}

// sampleFailures keeps the first SamplesPerGroup incorrect verdicts per
// domain, in dataset order.
func sampleFailures(byID map[string]record.GoldRecord, ids []string, verdicts []grade.Verdict) []SampleFailure {
	byRecord := make(map[string]grade.Verdict, len(verdicts))
	for _, verdict := range verdicts {
		byRecord[verdict.RecordID] = verdict
	}
	perDomain := map[record.Domain]int{}
	var out []SampleFailure
	for _, id := range ids {
		verdict, ok := byRecord[id]
		if !ok || verdict.IsCorrect {
			continue
		}
		rec := byID[id]
		if perDomain[rec.Domain] >= SamplesPerGroup {
			continue
		}
		perDomain[rec.Domain]++
		out = append(out, SampleFailure{
			Backend:       verdict.Backend,
			Mode:          verdict.Mode,
			Domain:        rec.Domain,
			RecordID:      id,
			Rule:          rec.Rule,
			Question:      rec.Question,
			CorrectChoice: rec.CorrectChoice,
			ParsedLetter:  verdict.ParsedLetter,
			ErrorCategory: string(verdict.ErrorCategory),
			RawResponse:   verdict.RawResponse,
		})
	}
	return out
}
