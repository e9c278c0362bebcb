// Package metrics exposes Prometheus metrics for HTTP traffic and storage calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nora_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nora_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nora_store_operations_total",
		Help: "Storage operations by backend, kind, operation and result code",
	}, []string{"backend", "kind", "op", "result"})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nora_store_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "kind", "op"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveStoreOperation records one storage call. result is "ok" or an error code.
func ObserveStoreOperation(backend, kind, op, result string, duration time.Duration) {
	storeOperations.WithLabelValues(backend, kind, op, result).Inc()
	storeDuration.WithLabelValues(backend, kind, op).Observe(duration.Seconds())
}
