// Package metrics provides Prometheus instrumentation for the pipeline
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all the metrics for the document pipeline
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion metrics
	FilesIngested prometheus.Counter
	FilesRejected *prometheus.CounterVec
	BytesIngested prometheus.Counter

	// Strategy metrics
	StrategyRuns     *prometheus.CounterVec
	StrategyDuration *prometheus.HistogramVec
	PagesProduced    prometheus.Counter
	BytesProduced    prometheus.Counter

	// Store metrics
	RecordsLive    prometheus.Gauge
	RecordsRemoved prometheus.Counter

	// Preview cache metrics
	PreviewCacheHits   prometheus.Counter
	PreviewCacheMisses prometheus.Counter

	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// NewMetrics creates a new metrics instance with its own registry
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pdfgarden"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		FilesIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_ingested_total",
				Help:      "Total number of files accepted into the session store",
			},
		),

		FilesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_rejected_total",
				Help:      "Total number of files rejected at ingestion",
			},
			[]string{"reason"},
		),

		BytesIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_ingested_total",
				Help:      "Total original bytes accepted into the session store",
			},
		),

		StrategyRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strategy_runs_total",
				Help:      "Total number of strategy runs by terminal status",
			},
			[]string{"strategy", "status"},
		),

		StrategyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "strategy_run_duration_seconds",
				Help:      "Strategy run duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~2.5m
			},
			[]string{"strategy"},
		),

		PagesProduced: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_produced_total",
				Help:      "Total number of output units produced by strategies",
			},
		),

		BytesProduced: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_produced_total",
				Help:      "Total output bytes produced by strategies",
			},
		),

		RecordsLive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "records_live",
				Help:      "Number of records currently in the session store",
			},
		),

		RecordsRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_removed_total",
				Help:      "Total number of records removed by the user",
			},
		),

		PreviewCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preview_cache_hits_total",
				Help:      "Total number of preview render cache hits",
			},
		),

		PreviewCacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preview_cache_misses_total",
				Help:      "Total number of preview render cache misses",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "route", "status_code"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			},
			[]string{"method", "route"},
		),

		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
	}
}

// ObserveStrategyRun records one finished strategy run
func (m *Metrics) ObserveStrategyRun(strategy, status string, duration time.Duration) {
	m.StrategyRuns.WithLabelValues(strategy, status).Inc()
	m.StrategyDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// Middleware returns a middleware that collects HTTP metrics
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			m.RequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture metrics
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Handler returns HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
