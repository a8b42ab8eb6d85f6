//go:build cucumber

package grade

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"forgetbench/internal/record"
)

// TestGradingScenarios runs the grading feature scenarios.
func TestGradingScenarios(t *testing.T) {
	featurePath := filepath.Join("..", "..", "spec", "features", "grading", "grading.feature")
	suite := godog.TestSuite{
		Name:                "grading",
		ScenarioInitializer: InitializeGradingScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{featurePath},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeGradingScenario wires steps for grading scenarios.
func InitializeGradingScenario(ctx *godog.ScenarioContext) {
	state := &gradingScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*state = gradingScenarioState{}
		return ctx, nil
	})

	ctx.Step(`^a scenario with choices "([^"]+)" and correct choice "([A-D])"$`, state.givenScenario)
	ctx.Step(`^the model responds:$`, state.whenModelResponds)
	ctx.Step(`^the parsed letter is "([A-D])"$`, state.thenParsedLetter)
	ctx.Step(`^no letter is parsed$`, state.thenNoLetter)
	ctx.Step(`^the verdict is correct$`, state.thenCorrect)
	ctx.Step(`^the verdict is incorrect with category "([a-z_]+)"$`, state.thenIncorrectWithCategory)
}

type gradingScenarioState struct {
	rec     record.GoldRecord
	verdict Verdict
}

func (s *gradingScenarioState) givenScenario(letters, correct string) error {
	s.rec = record.GoldRecord{
		ID:       "scenario",
		Domain:   record.DomainChess,
		Rule:     "Knights move exactly like bishops.",
		Question: "Where can the knight go?",
	}
	for _, letter := range strings.Split(letters, ",") {
		s.rec.Choices = append(s.rec.Choices, record.Choice{Letter: record.Letter(strings.TrimSpace(letter)), Text: "option"})
	}
	s.rec.CorrectChoice = record.Letter(correct)
	return nil
}

func (s *gradingScenarioState) whenModelResponds(doc *godog.DocString) error {
	s.verdict = Grade(doc.Content, s.rec)
	return nil
}

func (s *gradingScenarioState) thenParsedLetter(letter string) error {
	if s.verdict.ParsedLetter != record.Letter(letter) {
		return fmt.Errorf("expected letter %s, got %q", letter, s.verdict.ParsedLetter)
	}
	return nil
}

func (s *gradingScenarioState) thenNoLetter() error {
	if s.verdict.Parsed() {
		return fmt.Errorf("expected no letter, got %q", s.verdict.ParsedLetter)
	}
	return nil
}

func (s *gradingScenarioState) thenCorrect() error {
	if !s.verdict.IsCorrect {
		return fmt.Errorf("expected correct verdict, got %+v", s.verdict)
	}
	return nil
}

func (s *gradingScenarioState) thenIncorrectWithCategory(category string) error {
	if s.verdict.IsCorrect {
		return fmt.Errorf("expected incorrect verdict")
	}
	if s.verdict.ErrorCategory != Category(category) {
		return fmt.Errorf("expected category %s, got %q", category, s.verdict.ErrorCategory)
	}
	return nil
}
