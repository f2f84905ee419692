// Package metrics defines the Prometheus collectors used by the service and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	DocumentsIngestedTotal prometheus.Counter
	ChunksIndexedTotal     prometheus.Counter
	IngestFailuresTotal    *prometheus.CounterVec
	IngestDuration         prometheus.Histogram

	QueriesTotal      *prometheus.CounterVec
	QueryLatency      *prometheus.HistogramVec
	QueryResultsCount prometheus.Histogram
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter

	IndexDocuments      prometheus.Gauge
	IndexChunks         prometheus.Gauge
	IndexTerms          prometheus.Gauge
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg. Tests
// pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocumentsIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_documents_ingested_total",
				Help: "Total documents successfully ingested.",
			},
		),
		ChunksIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_chunks_indexed_total",
				Help: "Total chunks appended to the index.",
			},
		),
		IngestFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_ingest_failures_total",
				Help: "Failed ingestions by error code.",
			},
			[]string{"code"},
		),
		IngestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsearch_ingest_duration_seconds",
				Help:    "Time from upload to persisted index, in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_queries_total",
				Help: "Total queries by outcome (answered, insufficient_query, no_relevant_content, error).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsearch_query_latency_seconds",
				Help:    "Query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsearch_query_results_count",
				Help:    "Number of passages returned per query.",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 25, 50},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_index_documents",
				Help: "Documents in the index after the last ingestion.",
			},
		),
		IndexChunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_index_chunks",
				Help: "Chunks in the index after the last ingestion.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_index_terms",
				Help: "Distinct terms in the index after the last ingestion.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocumentsIngestedTotal,
		m.ChunksIndexedTotal,
		m.IngestFailuresTotal,
		m.IngestDuration,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexDocuments,
		m.IndexChunks,
		m.IndexTerms,
		m.CircuitBreakerState,
	)

	return m
}

// SetIndexSize updates the index gauges.
func (m *Metrics) SetIndexSize(documents, chunks, terms int) {
	m.IndexDocuments.Set(float64(documents))
	m.IndexChunks.Set(float64(chunks))
	m.IndexTerms.Set(float64(terms))
}

// BreakerObserver returns a hook that mirrors circuit breaker transitions
// into CircuitBreakerState.
func (m *Metrics) BreakerObserver() func(name string, from, to resilience.State) {
	return func(name string, _, to resilience.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}
}

// Handler returns the Prometheus scrape HTTP handler for the default
// registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
