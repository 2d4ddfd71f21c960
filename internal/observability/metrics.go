package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentflow_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contentflow_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheHits counts in-memory cache hits per store.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentflow_cache_hits_total",
		Help: "Total number of in-memory cache hits",
	}, []string{"cache"})

	// CacheMisses counts in-memory cache misses per store, expired reads included.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentflow_cache_misses_total",
		Help: "Total number of in-memory cache misses",
	}, []string{"cache"})

	// CacheEvictions counts removals by reason: expired, capacity or invalidated.
	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentflow_cache_evictions_total",
		Help: "Total number of in-memory cache evictions",
	}, []string{"cache", "reason"})

	// CacheSize is the number of resident entries per store.
	CacheSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "contentflow_cache_size",
		Help: "Number of entries resident in the in-memory cache",
	}, []string{"cache"})

	// CalendarSyncs counts external calendar operations by outcome.
	CalendarSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentflow_calendar_sync_total",
		Help: "Total number of external calendar operations",
	}, []string{"operation", "outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
