// Package metrics exposes load and façade counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imdbload"

// Recorder owns a private registry so several recorders (tests, the serve
// command) never collide on the process-wide default registry.
type Recorder struct {
	registry *prometheus.Registry

	rowsOffered   *prometheus.CounterVec
	rowsInserted  *prometheus.CounterVec
	rowsFiltered  *prometheus.CounterVec
	flushes       *prometheus.CounterVec
	flushRetries  *prometheus.CounterVec
	flushDuration *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rowsOffered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_offered_total",
			Help:      "Rows handed to the staged inserter",
		}, []string{"relation"}),
		rowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Rows the database reported as inserted",
		}, []string{"relation"}),
		rowsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_filtered_total",
			Help:      "Staged rows dropped by a parent existence check (diagnostics only)",
		}, []string{"relation"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Buffer flushes by relation",
		}, []string{"relation"}),
		flushRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_retries_total",
			Help:      "Flushes replayed after reopening the connection",
		}, []string{"relation"}),
		flushDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time taken to stage and insert one buffer",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}, []string{"relation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Façade requests by route and status code",
		}, []string{"route", "code"}),
	}

	r.registry.MustRegister(
		r.rowsOffered,
		r.rowsInserted,
		r.rowsFiltered,
		r.flushes,
		r.flushRetries,
		r.flushDuration,
		r.httpRequests,
		collectors.NewGoCollector(),
	)
	return r
}

// ObserveFlush records one completed flush.
func (r *Recorder) ObserveFlush(relation string, offered, inserted, filtered int64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.rowsOffered.WithLabelValues(relation).Add(float64(offered))
	r.rowsInserted.WithLabelValues(relation).Add(float64(inserted))
	if filtered > 0 {
		r.rowsFiltered.WithLabelValues(relation).Add(float64(filtered))
	}
	r.flushes.WithLabelValues(relation).Inc()
	r.flushDuration.WithLabelValues(relation).Observe(elapsed.Seconds())
}

// ObserveRetry records a flush replayed after a reconnect.
func (r *Recorder) ObserveRetry(relation string) {
	if r == nil {
		return
	}
	r.flushRetries.WithLabelValues(relation).Inc()
}

// ObserveRequest counts one façade request.
func (r *Recorder) ObserveRequest(route, code string) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, code).Inc()
}

// Registry returns the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
