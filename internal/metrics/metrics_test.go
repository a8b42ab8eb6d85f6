package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecorderCounts verifies counters and histograms are labeled per backend.
func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ObserveCall("gpt", OutcomeOK, 200*time.Millisecond)
	r.ObserveCall("gpt", OutcomeTransient, time.Second)
	r.ObserveRetry("gpt")
	r.ObserveVerdict("gpt", "direct", VerdictCorrect)
	r.ObserveVerdict("gpt", "direct", VerdictCorrect)

	if got := testutil.ToFloat64(r.calls.WithLabelValues("gpt", OutcomeOK)); got != 1 {
		t.Fatalf("expected 1 ok call, got %v", got)
	}
	if got := testutil.ToFloat64(r.retries.WithLabelValues("gpt")); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}
	if got := testutil.ToFloat64(r.verdicts.WithLabelValues("gpt", "direct", VerdictCorrect)); got != 2 {
		t.Fatalf("expected 2 verdicts, got %v", got)
	}
	if got := testutil.CollectAndCount(r.duration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

// TestNilRecorder verifies a nil recorder is a no-op.
func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.ObserveCall("gpt", OutcomeOK, time.Second)
	r.ObserveRetry("gpt")
	r.ObserveVerdict("gpt", "direct", VerdictIncorrect)
	if r.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// TestHandlerExposesMetrics verifies the exposition output names the run metrics.
func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveVerdict("claude", "chain_of_thought", VerdictParseFailure)
	server := httptest.NewServer(r.Handler())
	defer server.Close()
	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `forgetbench_verdicts_total{backend="claude",mode="chain_of_thought",outcome="parse_failure"} 1`) {
		t.Fatalf("missing verdict series:\n%s", body)
	}
}
