// Package metrics exposes Prometheus instrumentation for the catalog service.
//
// Metrics are served in text format at /metrics:
//
//	catalog_fetch_requests_total{endpoint,outcome}
//	catalog_fetch_duration_seconds{endpoint}
//	catalog_cache_events_total{result}
//	catalog_circuit_breaker_state{name}
//	catalog_search_sessions_active
//	http_requests_total{method,route,status}
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_fetch_requests_total",
			Help: "Total number of metadata provider requests",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, http_error, transport_error, rejected
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_fetch_duration_seconds",
			Help:    "Duration of metadata provider requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_events_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	SearchSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_search_sessions_active",
			Help: "Live search sessions bound to websocket connections",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordFetch records one provider request. The endpoint is reduced to its
// class so ids do not explode label cardinality.
func RecordFetch(endpoint, outcome string, duration time.Duration) {
	class := EndpointClass(endpoint)
	FetchRequests.WithLabelValues(class, outcome).Inc()
	FetchDuration.WithLabelValues(class).Observe(duration.Seconds())
}

// RecordCache records a cache lookup result.
func RecordCache(result string) {
	CacheEvents.WithLabelValues(result).Inc()
}

// RecordHTTP records a served request.
func RecordHTTP(method, route string, status int) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// EndpointClass replaces numeric and external-id path segments with ":id".
//
//	/movie/603/credits -> /movie/:id/credits
//	/find/tt0133093    -> /find/:id
func EndpointClass(endpoint string) string {
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	for i, p := range parts {
		if i > 0 && isIDSegment(p) {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func isIDSegment(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > 0 && (digits == len(s) || strings.HasPrefix(s, "tt"))
}
