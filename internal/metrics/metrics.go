package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StorageErrors   *prometheus.CounterVec
}

// RequestCount counts served HTTP requests.
func RequestCount() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
}

// RequestDuration observes HTTP request latency.
func RequestDuration() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasks_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// StorageErrors counts unexpected storage failures per operation.
func StorageErrors() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_storage_errors_total",
			Help: "Total number of unexpected storage errors",
		},
		[]string{"operation"},
	)
}

// RegisterMetrics creates the collectors and registers them, together
// with the Go runtime and process collectors, on reg.
func RegisterMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCount:    RequestCount(),
		RequestDuration: RequestDuration(),
		StorageErrors:   StorageErrors(),
	}
	reg.MustRegister(
		m.RequestCount,
		m.RequestDuration,
		m.StorageErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// StorageError records a failed storage call. A nil receiver is a no-op.
func (m *Metrics) StorageError(operation string) {
	if m == nil {
		return
	}
	m.StorageErrors.WithLabelValues(operation).Inc()
}
