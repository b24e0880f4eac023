package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptmart_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptmart_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EdgeToggles counts follow/like/favorite toggles by outcome.
	EdgeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptmart_edge_toggles_total",
		Help: "Relationship toggles by kind and result",
	}, []string{"kind", "result"})

	// PurchasesTotal counts purchase attempts by outcome.
	PurchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptmart_purchases_total",
		Help: "Purchase attempts by result",
	}, []string{"result"})

	// CounterDeltaFailures counts relation writes whose counter delta failed.
	CounterDeltaFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptmart_counter_delta_failures_total",
		Help: "Counter deltas that failed after the relation write succeeded",
	}, []string{"entity", "column"})

	// ReconcileDrift counts drifted counters found by reconciliation.
	ReconcileDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptmart_reconcile_drift_total",
		Help: "Counters found out of sync with their relation tables",
	}, []string{"entity", "column"})

	// ModerationTransitions counts listing status changes.
	ModerationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptmart_moderation_transitions_total",
		Help: "Listing status transitions",
	}, []string{"from", "to"})

	// ListingCacheLookups counts anonymous listing page cache lookups.
	ListingCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptmart_listing_cache_lookups_total",
		Help: "Listing page cache lookups by result",
	}, []string{"result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
