// Package metrics defines the Prometheus metric collectors used across the
// scanner and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the scanner.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	QueriesIndexedTotal prometheus.Counter
	DocsScannedTotal    *prometheus.CounterVec
	DocsSkippedTotal    *prometheus.CounterVec
	SpansMatchedTotal   prometheus.Counter
	CandidateHitsTotal  prometheus.Counter
	VerificationsTotal  prometheus.Counter
	ScanDuration        *prometheus.HistogramVec
	CorpusDocs          prometheus.Gauge
	ResultCacheHits     prometheus.Counter
	ResultCacheMisses   prometheus.Counter
	EmitterDropsTotal   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
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
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		QueriesIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "queries_indexed_total",
				Help: "Total query n-gram indexes built.",
			},
		),
		DocsScannedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_scanned_total",
				Help: "Total (query, document) scans by outcome (matched, unmatched).",
			},
			[]string{"outcome"},
		),
		DocsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_skipped_total",
				Help: "Inputs skipped before scanning by reason (malformed, resource).",
			},
			[]string{"reason"},
		),
		SpansMatchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spans_matched_total",
				Help: "Total candidate spans confirmed at or above the similarity threshold.",
			},
		),
		CandidateHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "candidate_hits_total",
				Help: "Total n-gram hash hits that triggered span verification.",
			},
		),
		VerificationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "verifications_total",
				Help: "Total weighted-Jaccard span verifications performed.",
			},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scan_duration_seconds",
				Help:    "Per-document scan latency in seconds by hash strategy.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"strategy"},
		),
		CorpusDocs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_documents",
				Help: "Number of usable documents loaded for the current run.",
			},
		),
		ResultCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_hits_total",
				Help: "Total scan-result cache hits.",
			},
		),
		ResultCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_misses_total",
				Help: "Total scan-result cache misses.",
			},
		),
		EmitterDropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "event_emitter_drops_total",
				Help: "Scan events dropped because the emitter buffer was full.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QueriesIndexedTotal,
		m.DocsScannedTotal,
		m.DocsSkippedTotal,
		m.SpansMatchedTotal,
		m.CandidateHitsTotal,
		m.VerificationsTotal,
		m.ScanDuration,
		m.CorpusDocs,
		m.ResultCacheHits,
		m.ResultCacheMisses,
		m.EmitterDropsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
