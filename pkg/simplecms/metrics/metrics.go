// Package metrics holds the Prometheus collectors of the content discovery
// layer. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Search metrics
	SearchRequestsTotal    *prometheus.CounterVec
	SearchDuration         prometheus.Histogram
	SearchHits             prometheus.Histogram
	IndexDegradationsTotal *prometheus.CounterVec

	// Media resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolverCacheTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simplecms_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "simplecms_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		SearchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simplecms_search_requests_total",
				Help: "Total number of search requests",
			},
			[]string{"status"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "simplecms_search_duration_seconds",
				Help:    "Search duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		SearchHits: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "simplecms_search_hits",
				Help:    "Number of hits returned per search",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		IndexDegradationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simplecms_index_degradations_total",
				Help: "Total number of fields indexed with naive tokenization",
			},
			[]string{"entity_type"},
		),

		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simplecms_media_resolutions_total",
				Help: "Total number of media reference resolutions",
			},
			[]string{"category", "outcome"},
		),
		ResolverCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simplecms_media_resolver_cache_total",
				Help: "Media resolver cache lookups",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SearchRequestsTotal,
		m.SearchDuration,
		m.SearchHits,
		m.IndexDegradationsTotal,
		m.ResolutionsTotal,
		m.ResolverCacheTotal,
	)

	return m
}

// ObserveSearch records one search request.
func (m *Metrics) ObserveSearch(d time.Duration, hits int, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SearchRequestsTotal.WithLabelValues(status).Inc()
	m.SearchDuration.Observe(d.Seconds())
	if err == nil {
		m.SearchHits.Observe(float64(hits))
	}
}

// IndexDegraded counts a field indexed with the naive tokenizer.
func (m *Metrics) IndexDegraded(entityType string) {
	if m == nil {
		return
	}
	m.IndexDegradationsTotal.WithLabelValues(entityType).Inc()
}

// Resolution outcomes.
const (
	OutcomeEmpty    = "empty"
	OutcomeExternal = "external"
	OutcomeExact    = "exact"
	OutcomeFuzzy    = "fuzzy"
	OutcomeMiss     = "miss"
	OutcomeCached   = "cached"
)

// ObserveResolution counts a media resolution by outcome.
func (m *Metrics) ObserveResolution(category, outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(category, outcome).Inc()
}

// ObserveCache counts a resolver cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ResolverCacheTotal.WithLabelValues(result).Inc()
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

// HTTPMiddleware instruments requests, labelled by chi route pattern.
func HTTPMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
