// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package metrics defines the Prometheus instrumentation for the feed
// pipeline: API latency, candidate sourcing, preference recomputes,
// the debounce scheduler, the predictor and the upstream content
// client. All collectors register through promauto at init time and
// are exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Feed Pipeline Metrics
	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_feed_requests_total",
			Help: "Total number of feed assemblies",
		},
		[]string{"result"}, // "ok", "fallback", "error"
	)

	FeedAssemblyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_feed_assembly_duration_seconds",
			Help:    "End-to-end feed assembly duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	FeedCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_feed_candidates",
			Help:    "Number of candidates produced per source per assembly",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 200, 400},
		},
		[]string{"source"}, // "affinity", "similarity", "sibling", "parent", "trending", "breaking", "fallback"
	)

	FeedDiversityDeferrals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_feed_diversity_deferrals_total",
			Help: "Total number of candidates deferred by the diversity window",
		},
	)

	FeedColdStarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_feed_cold_starts_total",
			Help: "Total number of feeds served without a preference profile",
		},
	)

	// Preference Recompute Metrics
	RecomputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_recomputes_total",
			Help: "Total number of preference recomputes",
		},
		[]string{"result"}, // "ok", "error", "skipped"
	)

	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_recompute_duration_seconds",
			Help:    "Preference recompute duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecomputeEventsProcessed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_recompute_events_processed",
			Help:    "Number of events aggregated per recompute",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
	)

	// Scheduler Metrics
	SchedulerReschedules = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_scheduler_reschedules_total",
			Help: "Total number of debounce timer resets",
		},
	)

	SchedulerPendingUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_scheduler_pending_users",
			Help: "Current number of users with a pending recompute",
		},
	)

	SchedulerRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_scheduler_rate_limited_total",
			Help: "Total number of recompute starts delayed by the rate limiter",
		},
	)

	// Ingestion Metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_events_ingested_total",
			Help: "Total number of interaction events accepted",
		},
		[]string{"type", "transport"}, // transport: "http", "nats"
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_events_rejected_total",
			Help: "Total number of interaction events rejected",
		},
		[]string{"reason"},
	)

	IngestBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_ingest_batch_size",
			Help:    "Number of events per ingested batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Predictor Metrics
	PredictorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_predictor_requests_total",
			Help: "Total number of click prediction batches",
		},
		[]string{"mode"}, // "authoritative", "neutral"
	)

	PredictorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_predictor_duration_seconds",
			Help:    "Click prediction batch duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	// Taxonomy Metrics
	TaxonomyCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_taxonomy_cache_hits_total",
			Help: "Total number of taxonomy tree cache hits",
		},
	)

	TaxonomyCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_taxonomy_cache_misses_total",
			Help: "Total number of taxonomy tree cache misses",
		},
	)

	TaxonomyCycleNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_taxonomy_cycle_nodes",
			Help: "Number of taxonomy nodes excluded due to cycle detection",
		},
	)

	// Content Store Client Metrics
	ContentQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_content_query_duration_seconds",
			Help:    "Upstream content store query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"}, // "by_category", "similar", "trending", "recent", "breaking"
	)

	ContentQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_content_query_errors_total",
			Help: "Total number of upstream content store errors",
		},
		[]string{"query", "error_type"}, // error_type: "timeout", "breaker_open", "upstream"
	)

	// Storage Metrics
	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_storage_operation_duration_seconds",
			Help:    "BadgerDB operation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_storage_errors_total",
			Help: "Total number of BadgerDB errors",
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "feed", "taxonomy"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "folio_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// NATS Metrics
	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_nats_messages_consumed_total",
			Help: "Total number of interaction messages consumed from NATS",
		},
	)

	NATSMessagesParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_nats_messages_parse_failed_total",
			Help: "Total number of NATS messages that failed to parse",
		},
	)
)

// RecordAPIRequest records latency and count for a completed request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecompute records a completed preference recompute.
func RecordRecompute(duration time.Duration, eventsProcessed int, err error) {
	if err != nil {
		RecomputesTotal.WithLabelValues("error").Inc()
		return
	}
	RecomputesTotal.WithLabelValues("ok").Inc()
	RecomputeDuration.Observe(duration.Seconds())
	RecomputeEventsProcessed.Observe(float64(eventsProcessed))
}

// RecordContentQuery records one upstream content store query.
func RecordContentQuery(query string, duration time.Duration, errType string) {
	ContentQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
	if errType != "" {
		ContentQueryErrors.WithLabelValues(query, errType).Inc()
	}
}

// RecordStorageOperation records one BadgerDB operation.
func RecordStorageOperation(operation string, duration time.Duration, err error) {
	StorageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StorageErrors.WithLabelValues(operation).Inc()
	}
}
