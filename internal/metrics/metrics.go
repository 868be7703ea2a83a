// Package metrics exposes Prometheus instrumentation for the pipeline's
// provider calls and quality gates. Observability only — nothing here
// gates control flow. Grounded on dmzoneill-ollama-proxy's
// pkg/metrics/metrics.go (promauto package-level vars + thin Record*/Set*
// wrappers), narrowed to this module's provider/fallback/gate domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesizer_provider_calls_total",
			Help: "Total provider calls by service kind, provider, and outcome",
		},
		[]string{"kind", "provider", "outcome"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synthesizer_provider_call_duration_seconds",
			Help:    "Provider call duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind", "provider"},
	)

	FallbackDepth = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synthesizer_fallback_depth",
			Help:    "Number of providers attempted before the fallback chain succeeded or was exhausted",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"kind"},
	)

	DurationGateResult = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesizer_duration_gate_result_total",
			Help: "Duration gate evaluations by pass/fail result",
		},
		[]string{"result"},
	)

	RegenerationAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesizer_regeneration_attempts_total",
			Help: "Total speech regeneration attempts triggered by the duration gate",
		},
		[]string{"outcome"},
	)

	SessionsDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synthesizer_sessions_degraded_total",
			Help: "Total sessions that finished with Degraded=true after exhausting regeneration attempts",
		},
	)

	SyncScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synthesizer_sync_score",
			Help:    "Overall audio/video sync score per session",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"strategy"},
	)
)

// RecordProviderCall records one provider invocation's outcome and latency.
func RecordProviderCall(kind, provider, outcome string, durationSec float64) {
	ProviderCallsTotal.WithLabelValues(kind, provider, outcome).Inc()
	ProviderCallDuration.WithLabelValues(kind, provider).Observe(durationSec)
}

// RecordFallbackDepth records how many providers the orchestrator tried
// for one ExecuteText/Image/Speech/Video call before it settled.
func RecordFallbackDepth(kind string, attempts int) {
	FallbackDepth.WithLabelValues(kind).Observe(float64(attempts))
}

// RecordDurationGate records one audiogate.Analysis evaluation.
func RecordDurationGate(mustRegenerate bool) {
	result := "pass"
	if mustRegenerate {
		result = "fail"
	}
	DurationGateResult.WithLabelValues(result).Inc()
}

// RecordRegenerationAttempt records one speech-regeneration retry and
// whether it succeeded in producing a new audio path.
func RecordRegenerationAttempt(succeeded bool) {
	outcome := "succeeded"
	if !succeeded {
		outcome = "failed"
	}
	RegenerationAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionDegraded records a session that finished degraded.
func RecordSessionDegraded() {
	SessionsDegradedTotal.Inc()
}

// RecordSyncScore records a completed syncplanner.Plan's overall score.
func RecordSyncScore(strategy string, score float64) {
	SyncScore.WithLabelValues(strategy).Observe(score)
}
