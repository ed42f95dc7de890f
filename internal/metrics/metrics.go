// Package metrics defines Prometheus metrics for print-price-matrix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ppm"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_panics_total",
		Help:      "Total handler panics recovered by middleware.",
	})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last /healthz probe succeeded, 0 otherwise.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last /readyz probe succeeded, 0 otherwise.",
	})
)

// Vendor pricing API metrics.
var (
	PricingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_requests_total",
		Help:      "Total pricing requests sent to the vendor, by outcome.",
	}, []string{"outcome"})

	PricingRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pricing_request_duration_seconds",
		Help:      "Duration of a single pricing call including retries.",
		Buckets:   prometheus.DefBuckets,
	})

	PricingRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_retries_total",
		Help:      "Total transport-level retries of pricing requests.",
	})

	PricingRepairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_repairs_total",
		Help:      "Total invalid-attribute repairs attempted.",
	})

	PricingSuspiciousTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_suspicious_total",
		Help:      "Total successful quotes flagged as suspicious.",
	})

	VendorDailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "vendor_daily_usage",
		Help:      "Vendor computePrice calls made today (UTC).",
	})

	VendorDailyLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vendor_daily_limit_hits_total",
		Help:      "Total number of times the daily vendor call budget was reached.",
	})
)

// Extraction job metrics.
var (
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Total extraction jobs by final state.",
	}, []string{"state"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Wall-clock duration of extraction jobs.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	CombinationsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "combinations_processed_total",
		Help:      "Total combinations priced or attempted.",
	})

	CombinationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "combination_errors_total",
		Help:      "Total combinations that failed to price.",
	})

	SlotCollisionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "slot_collisions_total",
		Help:      "Total attribute slot overwrites between different options.",
	})

	JobActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "job_active",
		Help:      "1 while an extraction job is running or paused.",
	})

	ProgressDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "progress_dropped_total",
		Help:      "Progress events dropped because a subscriber was full.",
	})
)

// Assist (AI mapping) metrics.
var (
	AssistRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assist_requests_total",
		Help:      "Total AI provider calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	AssistCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assist_cache_hits_total",
		Help:      "Total mapping suggestions served from cache.",
	})
)

// Notification and retention metrics.
var (
	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification send failures.",
	})

	NotificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of notification webhook calls.",
		Buckets:   prometheus.DefBuckets,
	})

	RetentionRunsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retention_runs_pruned_total",
		Help:      "Total run records removed by retention.",
	})

	RetentionOutputsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retention_outputs_pruned_total",
		Help:      "Total job output directories removed by retention.",
	})

	RetentionLastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "retention_last_run_timestamp",
		Help:      "Unix timestamp of the last completed retention run.",
	})

	RetentionNextRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "retention_next_run_timestamp",
		Help:      "Unix timestamp of the next scheduled retention run.",
	})
)
