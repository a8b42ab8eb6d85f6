// Package evalerr holds the configuration error shared by aggregation and
// statistics.
package evalerr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports inputs that make a result undefined: duplicate
// or missing record ids, mismatched pairs, or out-of-range statistics inputs.
// It must never be coerced into a zero or NaN result.
type ConfigurationError struct {
	Backend  string
	Mode     string
	RecordID string
	Reason   string
}

func (err *ConfigurationError) Error() string {
	var context []string
	if err.Backend != "" {
		context = append(context, "backend="+err.Backend)
	}
	if err.Mode != "" {
		context = append(context, "mode="+err.Mode)
	}
	if err.RecordID != "" {
		context = append(context, "record="+err.RecordID)
	}
	if len(context) == 0 {
		return fmt.Sprintf("configuration error: %s", err.Reason)
	}
	return fmt.Sprintf("configuration error (%s): %s", strings.Join(context, " "), err.Reason)
}

// Is matches ErrConfiguration.
func (err *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Newf builds a ConfigurationError without condition context.
func Newf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
