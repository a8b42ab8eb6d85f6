package testutil

import (
	"testing"
	"time"
)

// Eventually polls fn every interval and fails the test with msg if it has
// not returned true within timeout. fn runs once before the first wait.
func Eventually(t testing.TB, timeout, interval time.Duration, fn func() bool, msg string) {
	t.Helper()
	if msg == "" {
		msg = "condition not met before timeout"
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !fn() {
		select {
		case <-deadline.C:
			t.Fatalf("%s (after %s)", msg, timeout)
		case <-ticker.C:
		}
	}
}
