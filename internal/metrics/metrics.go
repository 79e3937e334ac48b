package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes reported by RecordSubmission
const (
	OutcomeAccepted          = "accepted"
	OutcomeInvalidCredential = "invalid_credential"
	OutcomeUnknownIdentity   = "unknown_identity"
	OutcomeMissingName       = "missing_name"
	OutcomeMissingFields     = "missing_fields"
	OutcomePersistenceError  = "persistence_error"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "memgame",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memgame",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memgame",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	scoreSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memgame",
			Subsystem: "scores",
			Name:      "submissions_total",
			Help:      "Score submissions by outcome.",
		},
		[]string{"outcome"},
	)

	submittedScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "memgame",
			Subsystem: "scores",
			Name:      "accepted_score",
			Help:      "Distribution of accepted score values.",
			Buckets:   prometheus.LinearBuckets(0, 1000, 11),
		},
	)

	leaderboardQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memgame",
			Subsystem: "scores",
			Name:      "leaderboard_queries_total",
			Help:      "Total number of leaderboard reads.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		scoreSubmissions,
		submittedScores,
		leaderboardQueries,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted marks an HTTP request as in flight; call the returned func when it finishes.
func RequestStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordHTTPRequest records a finished HTTP request against its route template.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSubmission counts a score submission by its outcome.
func RecordSubmission(outcome string) {
	scoreSubmissions.WithLabelValues(outcome).Inc()
}

// RecordAcceptedScore observes the value of a stored score.
func RecordAcceptedScore(score int64) {
	submittedScores.Observe(float64(score))
}

// RecordLeaderboardQuery counts a leaderboard read.
func RecordLeaderboardQuery() {
	leaderboardQueries.Inc()
}
