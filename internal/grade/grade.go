package grade

import "forgetbench/internal/record"

// Grade extracts the answer from raw and compares it with the gold letter.
// The returned verdict carries no condition; callers set it.
func Grade(raw string, rec record.GoldRecord) Verdict {
	verdict := Verdict{RecordID: rec.ID, RawResponse: raw}
	letter, method := ExtractLetter(raw, rec.Letters())
	if method == MethodNone {
		verdict.ErrorCategory = CategoryParseFailure
		return verdict
	}
	verdict.ParsedLetter = letter
	verdict.IsCorrect = letter == rec.CorrectChoice
	if !verdict.IsCorrect {
		verdict.ErrorCategory = Classify(raw, rec)
	}
	return verdict
}

// GradeCondition grades raw and stamps the verdict with cond.
func GradeCondition(raw string, rec record.GoldRecord, cond Condition) Verdict {
	verdict := Grade(raw, rec)
	verdict.Condition = cond
	return verdict
}
