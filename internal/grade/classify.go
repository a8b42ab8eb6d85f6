package grade

import (
	"strings"
	"unicode"

	"forgetbench/internal/record"
)

// Phrases that signal the model fell back to the real-world default.
var reversionPhrases = []string{
	"in reality",
	"in real life",
	"in the real world",
	"normally",
	"traditionally",
	"conventionally",
	"standard rules",
	"usual rules",
	"as usual",
	"by default",
}

var domainReversionTerms = map[record.Domain][]string{
	record.DomainChess: {
		"standard chess", "normal chess", "regular chess", "l-shape", "l shape", "l-shaped",
		"two squares and one", "moves diagonally like a normal bishop", "castling normally",
	},
	record.DomainMath: {
		"standard addition", "normal addition", "ordinary addition", "usual arithmetic",
		"standard arithmetic", "normal multiplication", "standard multiplication", "conventional math",
	},
	record.DomainProtocol: {
		"standard protocol", "per the rfc", "rfc ", "usual behavior", "default behavior",
		"standard behavior", "normal operation", "as specified by the standard",
	},
}

// Phrases that show the model engaged with the override.
var acknowledgementPhrases = []string{
	"under this rule",
	"under the rule",
	"according to the rule",
	"per the rule",
	"the rule says",
	"the rule states",
	"given rule",
	"new rule",
	"this variant",
	"in this variant",
	"redefined",
	"redefinition",
	"modified rule",
	"override",
	"hypothetical",
}

const minDistinctiveTermLength = 7

// Classify assigns a diagnostic category to an incorrect, parsed response.
// Specific vocabulary is checked before generic wording: record and domain
// reversion terms, then acknowledgement of the override, then generic
// reversion phrases, then quoting of the rule.
func Classify(raw string, rec record.GoldRecord) Category {
	lower := strings.ToLower(raw)
	switch {
	case containsAny(lower, rec.CanonicalTerms), containsAny(lower, domainReversionTerms[rec.Domain]):
		return CategoryRuleReversion
	case containsAny(lower, acknowledgementPhrases):
		return CategoryPartialCompliance
	case containsAny(lower, reversionPhrases):
		return CategoryRuleReversion
	case quotesRule(lower, raw, rec.Rule):
		return CategoryPartialCompliance
	default:
		return CategoryOther
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// quotesRule reports whether the response repeats a distinctive rule term:
// a long word, or a symbol that does not occur in ordinary prose.
func quotesRule(lower, raw, rule string) bool {
	for _, r := range rule {
		if r > unicode.MaxASCII && unicode.IsSymbol(r) && strings.ContainsRune(raw, r) {
			return true
		}
	}
	words := strings.FieldsFunc(strings.ToLower(rule), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	for _, word := range words {
		if len(word) >= minDistinctiveTermLength && strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
