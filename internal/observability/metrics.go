package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	gradingOutcomesTotal  *prometheus.CounterVec
	submissionsTotal      *prometheus.CounterVec
	verdictCacheLookups   *prometheus.CounterVec
	leaderboardBuildTimes prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the assessment API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		gradingOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_outcomes_total",
			Help: "Graded answers by question type and outcome.",
		}, []string{"question_type", "outcome"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Submission attempts by activity kind and result.",
		}, []string{"activity_kind", "result"})

		verdictCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verdict_cache_lookups_total",
			Help: "Semantic verdict cache lookups by result.",
		}, []string{"result"})

		leaderboardBuildTimes = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "leaderboard_build_seconds",
			Help:    "Time spent aggregating the leaderboard.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			gradingOutcomesTotal,
			submissionsTotal,
			verdictCacheLookups,
			leaderboardBuildTimes,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradingOutcomes counts graded answers. Outcomes are correct, incorrect,
// skipped and degraded.
func GradingOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingOutcomesTotal
}

// Submissions counts submission attempts by terminal state.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// VerdictCacheLookups counts verdict cache hits and misses.
func VerdictCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return verdictCacheLookups
}

// LeaderboardBuildDuration observes leaderboard aggregation time.
func LeaderboardBuildDuration() prometheus.Histogram {
	RegisterMetrics()
	return leaderboardBuildTimes
}
