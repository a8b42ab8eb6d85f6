package record

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Issue captures a validation problem in a dataset.
type Issue struct {
	Field   string
	Message string
}

// ValidationError reports one or more dataset validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error returns a readable message for validation failures.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return fmt.Sprintf("dataset validation failed: %s", strings.Join(parts, "; "))
}

type issueCollector struct {
	issues []Issue
}

func (collector *issueCollector) add(field, message string) {
	collector.issues = append(collector.issues, Issue{Field: field, Message: message})
}

func (collector *issueCollector) result() error {
	if len(collector.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: collector.issues}
}

var (
	validateOnce sync.Once
	structCheck  *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		structCheck = validator.New(validator.WithRequiredStructEnabled())
		structCheck.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structCheck
}

// Validate checks every record and the dataset-wide invariants: unique ids,
// unique option letters and a gold letter that names one of the options.
func Validate(records []GoldRecord) error {
	collector := &issueCollector{}
	if len(records) == 0 {
		collector.add("records", "must include at least one entry")
	}
	seenIDs := map[string]int{}
	for i, rec := range records {
		prefix := fmt.Sprintf("records[%d]", i)
		if rec.ID != "" {
			prefix = fmt.Sprintf("records[%d](%s)", i, rec.ID)
		}
		validateStruct(collector, prefix, rec)

		if strings.TrimSpace(rec.ID) != rec.ID {
			collector.add(prefix+".id", "must not have surrounding whitespace")
		}
		if rec.ID != "" {
			if first, exists := seenIDs[rec.ID]; exists {
				collector.add(prefix+".id", fmt.Sprintf("duplicate id %q (first at records[%d])", rec.ID, first))
			} else {
				seenIDs[rec.ID] = i
			}
		}
		if rec.Rule != "" && strings.TrimSpace(rec.Rule) == "" {
			collector.add(prefix+".rule", "must not be blank")
		}
		if rec.Question != "" && strings.TrimSpace(rec.Question) == "" {
			collector.add(prefix+".question", "must not be blank")
		}

		seenLetters := map[Letter]struct{}{}
		for _, choice := range rec.Choices {
			if _, exists := seenLetters[choice.Letter]; exists {
				collector.add(prefix+".choices", fmt.Sprintf("duplicate letter %q", choice.Letter))
			}
			seenLetters[choice.Letter] = struct{}{}
		}
		if rec.CorrectChoice != "" && len(rec.Choices) > 0 && !rec.HasLetter(rec.CorrectChoice) {
			collector.add(prefix+".correct_choice", fmt.Sprintf("%q is not one of the choices", rec.CorrectChoice))
		}
	}
	return collector.result()
}

func validateStruct(collector *issueCollector, prefix string, rec GoldRecord) {
	err := structValidator().Struct(rec)
	if err == nil {
		return
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		collector.add(prefix, err.Error())
		return
	}
	for _, fieldErr := range fieldErrors {
		collector.add(prefix+"."+fieldPath(fieldErr.Namespace()), describeTag(fieldErr))
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func describeTag(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fieldErr.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("must include at least %s entries", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must include at most %s entries", fieldErr.Param())
	default:
		return fmt.Sprintf("failed %q check", fieldErr.Tag())
	}
}
