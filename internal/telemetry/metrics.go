// Package telemetry provides application-level observability for the backend.
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<SKB_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not part of the Gin router, so it is
// never subject to the auth or rate-limit middleware chain.
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/products/:id)
// rather than the raw URL to prevent unbounded label cardinality from
// user-supplied path segments.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5m window):  rate(http_requests_total[5m])
//   - Error rate (%):                   sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:            histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Store scope resolution metrics — recorded by the store scope middleware for
// every request that carries (or should carry) an x-store-id header.
//
// ScopeResolutionsTotal is a CounterVec with labels {result, id_kind}.
// result is "authorized" or the taxonomy code of the failure
// (MISSING_SCOPE_ID, INVALID_SCOPE_ID_FORMAT, NO_PEER_MAPPING,
// UNAUTHENTICATED, NO_STORE_ACCESS, INTERNAL_ERROR); id_kind is the
// classified header format ("uuid", "peer_id", "unknown"). Both label sets
// are closed, so cardinality is bounded.
//
// Example PromQL queries:
//   - Rejection rate:        sum(rate(scope_resolutions_total{result!="authorized"}[5m]))
//   - Peer-id traffic share: sum(rate(scope_resolutions_total{id_kind="peer_id"}[1h]))
var (
	ScopeResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scope_resolutions_total",
			Help: "Total number of store scope resolutions, by outcome and identifier kind.",
		},
		[]string{"result", "id_kind"},
	)

	ScopeResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scope_resolution_duration_seconds",
			Help:    "Duration of store scope resolution including mapping and membership lookups.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)
)

// Peer mapping metrics.
//
// PeerMappingWritesTotal counts administrative mapping mutations, labelled by
// operation ("create", "remove") and outcome ("ok", "conflict", "error").
// The cache hit/miss counters track the Redis read-through cache in front of
// the peer-id reverse index.
var (
	PeerMappingWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peer_mapping_writes_total",
			Help: "Total number of peer store mapping mutations, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	ReverseMappingCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reverse_mapping_cache_hits_total",
			Help: "Total number of peer-id reverse lookups served from cache.",
		},
	)

	ReverseMappingCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reverse_mapping_cache_misses_total",
			Help: "Total number of peer-id reverse lookups that fell through to the database.",
		},
	)
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool. It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
