// Package metrics declares the Prometheus collectors this module exposes:
// request counts by kind and outcome, pool occupancy, and cache
// effectiveness, grounded on the package-level NewCounterVec/NewGaugeVec
// pattern used throughout the retrieval pack's pkg/metrics packages.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RequestsTotal counts server-side requests by wire kind and outcome
	// ("ok", "no_such_id", "capacity_exceeded").
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cirrus_server_requests_total",
			Help: "Total number of requests handled by the object-store server, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// ActiveConnections tracks the number of currently-open client
	// connections on a server instance.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cirrus_server_active_connections",
			Help: "Number of currently open client connections.",
		},
	)

	// PoolBytesUsed and PoolCapacity report backend occupancy.
	PoolBytesUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cirrus_pool_bytes_used",
			Help: "Sum of all stored blob lengths on this server.",
		},
	)
	PoolCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cirrus_pool_capacity_bytes",
			Help: "Configured capacity of the server's storage pool in bytes.",
		},
	)

	// CacheHitsTotal, CacheMissesTotal and CacheEvictionsTotal track
	// client-side cache manager effectiveness.
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cirrus_cache_hits_total",
			Help: "Total number of cache manager Get calls served without a server round-trip.",
		},
	)
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cirrus_cache_misses_total",
			Help: "Total number of cache manager Get calls that required a synchronous fetch.",
		},
	)
	CacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cirrus_cache_evictions_total",
			Help: "Total number of cache entries evicted to make room for an insertion.",
		},
	)
)

// NewRegistry returns a fresh registry with every collector above
// registered, suitable for exposing via promhttp.HandlerFor. Using a
// dedicated registry (rather than prometheus.DefaultRegisterer) keeps
// repeated test-process server instantiations from panicking on
// duplicate registration.
func NewRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		RequestsTotal,
		ActiveConnections,
		PoolBytesUsed,
		PoolCapacity,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
	)
	return r
}
