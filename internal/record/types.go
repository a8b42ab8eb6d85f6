package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Letter identifies one answer option of a multiple-choice scenario.
type Letter string

// Domain names the family a scenario's counterfactual rule belongs to.
type Domain string

const (
	DomainChess    Domain = "chess"
	DomainMath     Domain = "math"
	DomainProtocol Domain = "protocol"
)

// Domains lists the supported scenario domains in report order.
var Domains = []Domain{DomainChess, DomainMath, DomainProtocol}

// Choice is a single lettered option.
type Choice struct {
	Letter Letter `json:"letter" validate:"required,oneof=A B C D"`
	Text   string `json:"text" validate:"required"`
}

// Choices keeps options in presentation order.
//
// The JSON form is either an array of {"letter","text"} objects, kept in the
// given order, or an object keyed by letter, ordered alphabetically.
type Choices []Choice

// UnmarshalJSON accepts the array and the letter-keyed object encodings.
func (choices *Choices) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*choices = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []Choice
		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&list); err != nil {
			return fmt.Errorf("choices: %w", err)
		}
		*choices = list
		return nil
	}
	var keyed map[string]string
	if err := json.Unmarshal(trimmed, &keyed); err != nil {
		return fmt.Errorf("choices: expected array or letter map: %w", err)
	}
	letters := make([]string, 0, len(keyed))
	for letter := range keyed {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	list := make([]Choice, 0, len(letters))
	for _, letter := range letters {
		list = append(list, Choice{Letter: Letter(letter), Text: keyed[letter]})
	}
	*choices = list
	return nil
}

// GoldRecord is one counterfactual-rule scenario with its gold answer.
// Records are read-only once loaded.
type GoldRecord struct {
	ID             string         `json:"id" validate:"required"`
	Domain         Domain         `json:"domain" validate:"required,oneof=chess math protocol"`
	Rule           string         `json:"rule" validate:"required"`
	Question       string         `json:"question" validate:"required"`
	Choices        Choices        `json:"choices" validate:"min=2,max=4,dive"`
	CorrectChoice  Letter         `json:"correct_choice" validate:"required,oneof=A B C D"`
	AnswerType     string         `json:"answer_type,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CanonicalTerms []string       `json:"canonical_terms,omitempty" validate:"dive,required"`
}

// Letters returns the option letters in presentation order.
func (rec GoldRecord) Letters() []Letter {
	letters := make([]Letter, 0, len(rec.Choices))
	for _, choice := range rec.Choices {
		letters = append(letters, choice.Letter)
	}
	return letters
}

// HasLetter reports whether letter is one of the record's options.
func (rec GoldRecord) HasLetter(letter Letter) bool {
	for _, choice := range rec.Choices {
		if choice.Letter == letter {
			return true
		}
	}
	return false
}

// IDs returns record ids in dataset order.
func IDs(records []GoldRecord) []string {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids
}

// Index maps record ids to records.
func Index(records []GoldRecord) map[string]GoldRecord {
	index := make(map[string]GoldRecord, len(records))
	for _, rec := range records {
		index[rec.ID] = rec
	}
	return index
}

// Limit returns the first n records, or all of them when n <= 0.
func Limit(records []GoldRecord, n int) []GoldRecord {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
