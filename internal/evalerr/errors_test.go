package evalerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestConfigurationErrorContext verifies context fields appear and errors.Is matches through wrapping.
func TestConfigurationErrorContext(t *testing.T) {
	err := fmt.Errorf("aggregate: %w", &ConfigurationError{Backend: "gpt-4.1", Mode: "direct", RecordID: "r1", Reason: "duplicate verdict"})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected errors.Is to match")
	}
	for _, want := range []string{"backend=gpt-4.1", "mode=direct", "record=r1", "duplicate verdict"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
	if got := Newf("n must be positive").Error(); got != "configuration error: n must be positive" {
		t.Fatalf("unexpected message %q", got)
	}
}
