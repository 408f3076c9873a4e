// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"NewsIngest/internal/domain"
)

const namespace = "newsingest"

var (
	// APIRequestsTotal counts outbound news API attempts by target kind and outcome.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Outbound news API attempts",
		},
		[]string{"kind", "outcome"},
	)

	// APIRetriesTotal counts retried attempts.
	APIRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_retries_total",
			Help:      "Retried news API attempts",
		},
	)

	// RateLimitWaitsTotal counts dispatches that waited on the gate.
	RateLimitWaitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_waits_total",
			Help:      "Dispatches delayed by the rate gate",
		},
	)

	// ArticlesTotal counts gate decisions.
	ArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles by gate outcome and reason",
		},
		[]string{"outcome", "reason"},
	)

	// ArticleProcessingSeconds observes per-article normalize+enrich+gate time.
	ArticleProcessingSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "article_processing_seconds",
			Help:      "Per-article processing duration",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// RunsTotal counts closed runs by status.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status",
		},
		[]string{"status"},
	)

	// RunDurationSeconds observes whole-run wall time.
	RunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// StorageErrorsTotal counts repository failures by operation.
	StorageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Repository failures",
		},
		[]string{"operation"},
	)

	// CacheStatus tracks seen-cache reachability (1 = up, 0 = down).
	CacheStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seen_cache_up",
			Help:      "Seen-URL cache reachability",
		},
	)
)

// RecordAPIRequest records one attempt against the news API.
func RecordAPIRequest(kind, outcome string) {
	APIRequestsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordRetry records one retry.
func RecordRetry() {
	APIRetriesTotal.Inc()
}

// RecordThrottle records a gate wait.
func RecordThrottle() {
	RateLimitWaitsTotal.Inc()
}

// RecordDecision records a gate decision and its processing time.
func RecordDecision(d domain.Decision, took time.Duration) {
	ArticlesTotal.WithLabelValues(d.Outcome.String(), string(d.Reason)).Inc()
	ArticleProcessingSeconds.Observe(took.Seconds())
}

// RecordRun records a closed run.
func RecordRun(status domain.RunStatus, took time.Duration) {
	RunsTotal.WithLabelValues(string(status)).Inc()
	RunDurationSeconds.Observe(took.Seconds())
}

// RecordStorageError records a failed repository operation.
func RecordStorageError(op string) {
	StorageErrorsTotal.WithLabelValues(op).Inc()
}

// SetCacheUp flips the cache gauge.
func SetCacheUp(up bool) {
	if up {
		CacheStatus.Set(1)
		return
	}
	CacheStatus.Set(0)
}
