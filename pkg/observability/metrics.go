package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Indexing metrics
	FilesIndexedTotal    *prometheus.CounterVec
	FilesRemovedTotal    prometheus.Counter
	IndexDuration        *prometheus.HistogramVec
	ParseErrorsTotal     prometheus.Counter
	IndexedFiles         prometheus.Gauge
	IndexedDefinitions   *prometheus.GaugeVec

	// Query metrics
	SearchesTotal        *prometheus.CounterVec
	SearchDuration       prometheus.Histogram
	SearchResults        prometheus.Histogram
	LookupsTotal         *prometheus.CounterVec
	ResolveDuration      prometheus.Histogram

	// Cache metrics
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     *prometheus.CounterVec
	CacheInvalidations   prometheus.Counter

	// Watcher metrics
	WatchEventsTotal     *prometheus.CounterVec
	RescanTotal          prometheus.Counter

	// HTTP metrics (admin surface)
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec

	// RPC metrics (stdio protocol)
	RPCRequestsTotal     *prometheus.CounterVec
	RPCRequestDuration   *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		FilesIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpproto_files_indexed_total",
				Help: "Total number of proto files indexed",
			},
			[]string{"status"},
		),
		FilesRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mcpproto_files_removed_total",
				Help: "Total number of proto files removed from the index",
			},
		),
		IndexDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpproto_index_duration_seconds",
				Help:    "Index operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ParseErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mcpproto_parse_errors_total",
				Help: "Total number of proto files that failed to parse",
			},
		),
		IndexedFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpproto_indexed_files",
				Help: "Number of proto files currently indexed",
			},
		),
		IndexedDefinitions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mcpproto_indexed_definitions",
				Help: "Number of definitions currently indexed by kind",
			},
			[]string{"kind"},
		),

		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpproto_searches_total",
				Help: "Total number of search queries",
			},
			[]string{"status"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcpproto_search_duration_seconds",
				Help:    "Search duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcpproto_search_results",
				Help:    "Number of results returned per search",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpproto_lookups_total",
				Help: "Total number of definition lookups",
			},
			[]string{"kind", "status"},
		),
		ResolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcpproto_resolve_duration_seconds",
				Help:    "Type resolution duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpproto_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpproto_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
		CacheInvalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mcpproto_cache_invalidations_total",
				Help: "Total number of full cache invalidations",
			},
		),

		WatchEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpproto_watch_events_total",
				Help: "Total number of file watcher events handled",
			},
			[]string{"event"},
		),
		RescanTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mcpproto_rescans_total",
				Help: "Total number of full directory rescans",
			},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpproto_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpproto_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RPCRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpproto_rpc_requests_total",
				Help: "Total number of protocol requests",
			},
			[]string{"method", "status"},
		),
		RPCRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpproto_rpc_request_duration_seconds",
				Help:    "Protocol request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	registry.MustRegister(
		m.FilesIndexedTotal,
		m.FilesRemovedTotal,
		m.IndexDuration,
		m.ParseErrorsTotal,
		m.IndexedFiles,
		m.IndexedDefinitions,
		m.SearchesTotal,
		m.SearchDuration,
		m.SearchResults,
		m.LookupsTotal,
		m.ResolveDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheInvalidations,
		m.WatchEventsTotal,
		m.RescanTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RPCRequestsTotal,
		m.RPCRequestDuration,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// MetricsHandler returns the handler for the /metrics endpoint
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
