// Package metrics exports summarization metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/textsummarizer/session"
)

const namespace = "textsummarizer"

// PrometheusExporter collects backend and session metrics.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Backend metrics
	summarizeRequests *prometheus.CounterVec
	summarizeLatency  *prometheus.HistogramVec
	extractRequests   *prometheus.CounterVec
	extractLatency    *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter

	// Session metrics
	sessionRecords     prometheus.Gauge
	sessionCompletions *prometheus.CounterVec
	sessionLatency     prometheus.Histogram
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.summarizeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "summarize_requests_total",
			Help:      "Total number of summarize requests",
		},
		[]string{"status"},
	)
	e.summarizeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "summarize_latency_seconds",
			Help:      "Summarize request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"source"},
	)
	e.extractRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "extract_requests_total",
			Help:      "Total number of text extraction requests",
		},
		[]string{"format", "status"},
	)
	e.extractLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "extract_latency_seconds",
			Help:      "Text extraction latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"format"},
	)
	e.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "server",
		Name:      "cache_hits_total",
		Help:      "Total number of summary cache hits",
	})
	e.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "server",
		Name:      "cache_misses_total",
		Help:      "Total number of summary cache misses",
	})

	e.sessionRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "records",
		Help:      "Number of records in the session",
	})
	e.sessionCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "completions_total",
			Help:      "Summarization requests completed by the session, by final status",
		},
		[]string{"status"},
	)
	e.sessionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "request_seconds",
		Help:      "Round-trip time of session summarization requests",
		Buckets:   cfg.LatencyBuckets,
	})

	registry.MustRegister(
		e.summarizeRequests,
		e.summarizeLatency,
		e.extractRequests,
		e.extractLatency,
		e.cacheHits,
		e.cacheMisses,
		e.sessionRecords,
		e.sessionCompletions,
		e.sessionLatency,
	)
	return e
}

// RecordSummarize records a finished summarize request. status is
// "success", "error" or "rate_limited"; source is empty unless it succeeded.
func (e *PrometheusExporter) RecordSummarize(status, source string, latency time.Duration) {
	e.summarizeRequests.WithLabelValues(status).Inc()
	if source != "" {
		e.summarizeLatency.WithLabelValues(source).Observe(latency.Seconds())
	}
}

// RecordExtract records a text extraction attempt.
func (e *PrometheusExporter) RecordExtract(format string, latency time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.extractRequests.WithLabelValues(format, status).Inc()
	e.extractLatency.WithLabelValues(format).Observe(latency.Seconds())
}

// RecordCacheHit records a summary cache hit.
func (e *PrometheusExporter) RecordCacheHit() {
	e.cacheHits.Inc()
}

// RecordCacheMiss records a summary cache miss.
func (e *PrometheusExporter) RecordCacheMiss() {
	e.cacheMisses.Inc()
}

// ObserveSummarize implements session.Metrics.
func (e *PrometheusExporter) ObserveSummarize(status session.Status, elapsed time.Duration) {
	e.sessionCompletions.WithLabelValues(string(status)).Inc()
	e.sessionLatency.Observe(elapsed.Seconds())
}

// SetRecords implements session.Metrics.
func (e *PrometheusExporter) SetRecords(n int) {
	e.sessionRecords.Set(float64(n))
}

// Handler returns an HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}
