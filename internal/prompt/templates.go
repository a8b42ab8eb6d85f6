package prompt

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"forgetbench/internal/record"
)

const baseInstruction = "You are evaluating conditional rules in hypothetical scenarios. " +
	"Ignore all real-world facts and comply exactly with the rule provided."

const reasoningInstruction = " Think step-by-step to verify the rule before answering."

// Instruction is the preamble shared by every prompt of a mode.
func Instruction(mode Mode) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		text := baseInstruction
		if mode == ModeChainOfThought {
			text += reasoningInstruction
		}
		_, err := io.WriteString(w, text+"\n\n")
		return err
	})
}

// Scenario writes the rule, question and lettered choices. Its output does
// not depend on the mode.
func Scenario(rec record.GoldRecord) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var builder strings.Builder
		builder.WriteString("Rule:\n")
		builder.WriteString(rec.Rule)
		builder.WriteString("\n\nQuestion:\n")
		builder.WriteString(rec.Question)
		builder.WriteString("\n\nChoices:\n")
		for _, choice := range rec.Choices {
			builder.WriteString(string(choice.Letter))
			builder.WriteString(") ")
			builder.WriteString(choice.Text)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
		_, err := io.WriteString(w, builder.String())
		return err
	})
}

// Elicitation asks for the answer in the format the grader expects.
func Elicitation(mode Mode, letters []record.Letter) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var text string
		switch mode {
		case ModeChainOfThought:
			text = "Explain your reasoning briefly, then provide `Final Answer: <letter>` on a new line " +
				"with a single capital letter " + letterList(letters) + "."
		default:
			text = "Respond with only the single capital letter " + letterList(letters) +
				" of your chosen option and nothing else."
		}
		_, err := io.WriteString(w, text)
		return err
	})
}

// Page composes the full prompt.
func Page(rec record.GoldRecord, mode Mode) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, part := range []templ.Component{Instruction(mode), Scenario(rec), Elicitation(mode, rec.Letters())} {
			if err := part.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// letterList formats letters as "(A, B, C, or D)", "(A or B)" or "(A)".
func letterList(letters []record.Letter) string {
	names := make([]string, 0, len(letters))
	for _, letter := range letters {
		names = append(names, string(letter))
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return "(" + names[0] + ")"
	case 2:
		return "(" + names[0] + " or " + names[1] + ")"
	default:
		return "(" + strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1] + ")"
	}
}
