package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCreated     = "created"
	OutcomeClientError = "client_error"
	OutcomeServerError = "server_error"
)

var (
	// Ingestions counts ingestion calls by outcome (created|client_error|server_error).
	Ingestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frank_ingestions_total",
			Help: "Total number of invitation ingestion attempts",
		},
		[]string{"outcome"},
	)

	// ParseFailures counts rejected invitations by error kind.
	ParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frank_parse_failures_total",
			Help: "Total number of invitations rejected by the meeting-time parser",
		},
		[]string{"kind"},
	)

	// ProfilesCreated counts profiles created by committed ingestions.
	ProfilesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frank_profiles_created_total",
			Help: "Total number of profiles created during ingestion",
		},
	)

	// RequestLatency measures HTTP request latencies.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frank_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordIngestion increments the ingestion counter for outcome.
func RecordIngestion(outcome string) {
	Ingestions.WithLabelValues(outcome).Inc()
}

// RecordParseFailure increments the parse failure counter for kind.
func RecordParseFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	ParseFailures.WithLabelValues(kind).Inc()
}

// RecordProfilesCreated adds n newly stored profiles.
func RecordProfilesCreated(n int) {
	if n <= 0 {
		return
	}
	ProfilesCreated.Add(float64(n))
}
