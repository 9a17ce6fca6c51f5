// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ChatRequestDuration tracks end-to-end orchestration duration.
	ChatRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_request_duration_seconds",
			Help:    "Chat orchestration duration in seconds",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"status"},
	)

	// ProviderAttemptsTotal tracks provider attempts by outcome.
	ProviderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_attempts_total",
			Help: "Generation provider attempts by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// CrisisDetectionsTotal tracks messages flagged by crisis detection.
	CrisisDetectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crisis_detections_total",
			Help: "User messages flagged by crisis keyword detection",
		},
	)

	// SafetyFilterHitsTotal tracks responses flagged by the content safety filter.
	SafetyFilterHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safety_filter_hits_total",
			Help: "Candidate responses flagged by the content safety filter",
		},
		[]string{"action"},
	)

	// BackendProbesTotal tracks health probes of the local model backend.
	BackendProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_probes_total",
			Help: "Local backend availability probes by result",
		},
		[]string{"available"},
	)

	// ExportsTotal tracks conversation exports by format.
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_exports_total",
			Help: "Conversation exports by format",
		},
		[]string{"format"},
	)

	// MessagesTotal tracks messages appended to sessions.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Messages appended to sessions by sender",
		},
		[]string{"sender"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordProviderAttempt records one generation provider attempt.
func RecordProviderAttempt(provider, outcome string) {
	ProviderAttemptsTotal.WithLabelValues(provider, outcome).Inc()
}
