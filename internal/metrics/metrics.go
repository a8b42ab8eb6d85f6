package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "forgetbench"

// Call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeTransient = "transient"
	OutcomeFatal     = "fatal"
	OutcomeCanceled  = "canceled"
)

// Verdict outcomes.
const (
	VerdictCorrect      = "correct"
	VerdictIncorrect    = "incorrect"
	VerdictParseFailure = "parse_failure"
)

// Recorder holds run metrics on a private registry. A nil *Recorder discards everything.
type Recorder struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	verdicts *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Provider call attempts by backend and outcome",
		}, []string{"backend", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries scheduled after transient provider failures",
		}, []string{"backend"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Provider call latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"backend"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Graded verdicts by backend, mode and outcome",
		}, []string{"backend", "mode", "outcome"}),
	}
	r.registry.MustRegister(
		r.calls,
		r.retries,
		r.duration,
		r.verdicts,
		collectors.NewGoCollector(),
	)
	return r
}

// ObserveCall records one provider attempt.
func (r *Recorder) ObserveCall(backend, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.calls.WithLabelValues(backend, outcome).Inc()
	r.duration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ObserveRetry records a scheduled retry.
func (r *Recorder) ObserveRetry(backend string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(backend).Inc()
}

// ObserveVerdict records a graded verdict.
func (r *Recorder) ObserveVerdict(backend, mode, outcome string) {
	if r == nil {
		return
	}
	r.verdicts.WithLabelValues(backend, mode, outcome).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
