package aggregate

import (
	"sort"

	"forgetbench/internal/grade"
	"forgetbench/internal/record"
)

// DomainResult is the accuracy of one condition restricted to a domain.
type DomainResult struct {
	Domain   record.Domain `json:"domain"`
	N        int           `json:"n"`
	Correct  int           `json:"correct"`
	Accuracy float64       `json:"accuracy"`
}

// ByDomain splits a verified verdict set by record domain, in the order of
// record.Domains followed by any other domains alphabetically.
func ByDomain(records map[string]record.GoldRecord, verdicts []grade.Verdict) []DomainResult {
	totals := map[record.Domain]*DomainResult{}
	for _, verdict := range verdicts {
		rec, ok := records[verdict.RecordID]
		if !ok {
			continue
		}
		entry := totals[rec.Domain]
		if entry == nil {
			entry = &DomainResult{Domain: rec.Domain}
			totals[rec.Domain] = entry
		}
		entry.N++
		if verdict.IsCorrect {
			entry.Correct++
		}
	}

	var order []record.Domain
	seen := map[record.Domain]bool{}
	for _, domain := range record.Domains {
		if totals[domain] != nil {
			order = append(order, domain)
			seen[domain] = true
		}
	}
	var extra []record.Domain
	for domain := range totals {
		if !seen[domain] {
			extra = append(extra, domain)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	order = append(order, extra...)

	results := make([]DomainResult, 0, len(order))
	for _, domain := range order {
		entry := *totals[domain]
		entry.Accuracy = float64(entry.Correct) / float64(entry.N)
		results = append(results, entry)
	}
	return results
}

// Categories counts error categories among incorrect verdicts.
func Categories(verdicts []grade.Verdict) map[grade.Category]int {
	counts := map[grade.Category]int{}
	for _, verdict := range verdicts {
		if verdict.ErrorCategory != grade.CategoryNone {
			counts[verdict.ErrorCategory]++
		}
	}
	return counts
}
