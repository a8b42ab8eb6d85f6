package grade

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"forgetbench/internal/record"
)

// finalAnswerPattern matches "Final Answer: X" with optional markdown
// emphasis or brackets around the letter.
var finalAnswerPattern = regexp.MustCompile(`(?i)final\s*answer[\s*_]*(?:is)?[\s*_]*[:：\-]?[\s*_]*[\[(]?\s*([a-z])\b`)

// ExtractLetter finds the answer letter in a response. The last sentinel
// naming a valid letter wins; otherwise the last standalone uppercase valid
// letter is used.
func ExtractLetter(raw string, letters []record.Letter) (record.Letter, Method) {
	valid := make(map[record.Letter]struct{}, len(letters))
	for _, letter := range letters {
		valid[letter] = struct{}{}
	}

	matches := finalAnswerPattern.FindAllStringSubmatchIndex(raw, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		start, end := matches[i][2], matches[i][3]
		captured := raw[start:end]
		if captured != strings.ToUpper(captured) && followedByWord(raw[end:]) {
			// A lowercase letter followed by another word is prose ("a knight"), not an answer.
			continue
		}
		letter := record.Letter(strings.ToUpper(captured))
		if _, ok := valid[letter]; ok {
			return letter, MethodSentinel
		}
	}

	if letter, ok := lastStandaloneLetter(raw, valid); ok {
		return letter, MethodFallback
	}
	return "", MethodNone
}

// followedByWord reports whether the next text on the same line, after
// spaces, starts a word. Punctuation, emphasis markers and line ends do not.
func followedByWord(rest string) bool {
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return isWordRune(r)
}

// lastStandaloneLetter scans backwards for an uppercase valid letter that is
// not part of a longer word or number.
func lastStandaloneLetter(raw string, valid map[record.Letter]struct{}) (record.Letter, bool) {
	for end := len(raw); end > 0; {
		r, size := utf8.DecodeLastRuneInString(raw[:end])
		start := end - size
		if r >= 'A' && r <= 'Z' {
			if _, ok := valid[record.Letter(string(r))]; ok && !wordRuneBefore(raw, start) && !wordRuneAfter(raw, end) {
				return record.Letter(string(r)), true
			}
		}
		end = start
	}
	return "", false
}

func wordRuneBefore(raw string, index int) bool {
	if index == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(raw[:index])
	return isWordRune(r)
}

func wordRuneAfter(raw string, index int) bool {
	if index >= len(raw) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(raw[index:])
	return isWordRune(r) || r == '\''
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
