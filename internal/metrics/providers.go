package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream provider and cache metrics.
var (
	PlacesRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapmapmap",
			Name:      "places_requests_total",
			Help:      "Total number of place search requests to the upstream provider",
		},
		[]string{"status"},
	)

	PlacesRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mapmapmap",
			Name:      "places_request_duration_seconds",
			Help:      "Place search request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	EnrichmentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapmapmap",
			Name:      "enrichment_requests_total",
			Help:      "Total number of vibe enrichment requests",
		},
		[]string{"model", "status"}, // status: "ok" / "degraded" / "error"
	)

	EnrichmentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mapmapmap",
			Name:      "enrichment_request_duration_seconds",
			Help:      "Vibe enrichment request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"model"},
	)

	EnrichmentBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mapmapmap",
			Name:      "enrichment_breaker_open",
			Help:      "1 when the enrichment circuit breaker is open, 0 otherwise",
		},
	)

	VibeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapmapmap",
			Name:      "vibe_cache_total",
			Help:      "Vibe cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapmapmap",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)
)

var providerMetricsRegistered bool

// RegisterProviderMetrics registers provider Prometheus metrics. Must be called once from main.
func RegisterProviderMetrics() {
	if providerMetricsRegistered {
		return
	}
	prometheus.MustRegister(PlacesRequestsTotal)
	prometheus.MustRegister(PlacesRequestDuration)
	prometheus.MustRegister(EnrichmentRequestsTotal)
	prometheus.MustRegister(EnrichmentRequestDuration)
	prometheus.MustRegister(EnrichmentBreakerState)
	prometheus.MustRegister(VibeCacheTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	providerMetricsRegistered = true
}
