// Package metrics registers the Prometheus collectors for clipfeed and
// small helpers to record into them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed composition
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfeed_feed_requests_total",
			Help: "Total number of composed feeds",
		},
		[]string{"preset", "status"},
	)

	FeedDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipfeed_feed_duration_seconds",
			Help:    "Time to load candidates, score and order a feed",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"preset"},
	)

	FeedCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipfeed_feed_candidates",
			Help:    "Number of candidate items scored per feed request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 .. 16384
		},
	)

	ProfileDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipfeed_profile_load_degraded_total",
			Help: "Feeds served with an empty profile because the stored one could not be read",
		},
	)

	// Interactions
	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfeed_interactions_recorded_total",
			Help: "Total number of interaction events applied to profiles",
		},
		[]string{"kind", "path"}, // path: "sync", "async"
	)

	InteractionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfeed_interaction_errors_total",
			Help: "Interaction events that failed to apply",
		},
		[]string{"path"},
	)

	// Related / popular lookups
	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipfeed_lookup_duration_seconds",
			Help:    "Duration of related-content and popular-on-channel lookups",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // "related", "popular"
	)

	// Job queue
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfeed_jobs_processed_total",
			Help: "Background jobs processed by the ingest worker",
		},
		[]string{"type", "result"}, // result: "completed", "retried"
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfeed_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipfeed_api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordFeed records one feed composition.
func RecordFeed(preset string, candidates int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	FeedRequests.WithLabelValues(preset, status).Inc()
	if err == nil {
		FeedDuration.WithLabelValues(preset).Observe(duration.Seconds())
		FeedCandidates.Observe(float64(candidates))
	}
}

// RecordInteraction counts an applied (err == nil) or failed event.
func RecordInteraction(kind, path string, err error) {
	if err != nil {
		InteractionErrors.WithLabelValues(path).Inc()
		return
	}
	InteractionsRecorded.WithLabelValues(kind, path).Inc()
}

// RecordLookup observes a related or popular lookup.
func RecordLookup(kind string, duration time.Duration) {
	LookupDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordJob counts a processed job.
func RecordJob(jobType string, err error) {
	result := "completed"
	if err != nil {
		result = "retried"
	}
	JobsProcessed.WithLabelValues(jobType, result).Inc()
}

// RecordAPIRequest records API request metrics.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
