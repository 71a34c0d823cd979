package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the enrichment pipeline.
type Metrics struct {
	// CacheLookups counts enrichment cache lookups by namespace and result.
	CacheLookups *prometheus.CounterVec
	// SourceRequests counts outbound knowledge-source calls by operation.
	SourceRequests *prometheus.CounterVec
	// SourceErrors counts degraded knowledge-source calls by operation and error kind.
	SourceErrors *prometheus.CounterVec
	// Resolutions counts resolver runs by outcome.
	Resolutions *prometheus.CounterVec
	// ResolveLatency observes full resolution latency in seconds.
	ResolveLatency prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registry leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cougar_cache_lookups_total",
			Help: "Enrichment cache lookups by namespace (query, title) and result (hit, miss, expired)",
		}, []string{"namespace", "result"}),

		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cougar_source_requests_total",
			Help: "Outbound knowledge-source requests by operation",
		}, []string{"op"}),

		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cougar_source_errors_total",
			Help: "Knowledge-source calls that degraded to an empty result",
		}, []string{"op", "kind"}),

		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cougar_resolutions_total",
			Help: "Resolution runs by outcome (query_cache, title_cache, resolved, no_match, no_summary)",
		}, []string{"outcome"}),

		ResolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cougar_resolve_duration_seconds",
			Help:    "End-to-end resolution latency in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.CacheLookups, m.SourceRequests, m.SourceErrors, m.Resolutions, m.ResolveLatency)
	}
	return m
}
