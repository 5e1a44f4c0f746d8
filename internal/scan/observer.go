package scan

import (
	"log/slog"
	"time"

	"github.com/overlap-ml/neardup/pkg/metrics"
)

// ScanStats carries the per-document engine counters handed to observers.
type ScanStats struct {
	Hits     int
	Verified int
	Spans    int
	Duration time.Duration
	Strategy string
}

// Observer receives scan progress callbacks. Implementations must be safe
// for concurrent use; OnDocumentScanned is called from worker goroutines.
type Observer interface {
	OnQueryIndexed(queryID string)
	OnDocumentScanned(queryID, docID string, matched bool, stats ScanStats)
	OnCorpusComplete(queryID string, count int64)
}

// NopObserver ignores all callbacks.
type NopObserver struct{}

func (NopObserver) OnQueryIndexed(string)                             {}
func (NopObserver) OnDocumentScanned(string, string, bool, ScanStats) {}
func (NopObserver) OnCorpusComplete(string, int64)                    {}

// MultiObserver fans callbacks out to several observers.
type MultiObserver []Observer

func (m MultiObserver) OnQueryIndexed(queryID string) {
	for _, o := range m {
		o.OnQueryIndexed(queryID)
	}
}

func (m MultiObserver) OnDocumentScanned(queryID, docID string, matched bool, stats ScanStats) {
	for _, o := range m {
		o.OnDocumentScanned(queryID, docID, matched, stats)
	}
}

func (m MultiObserver) OnCorpusComplete(queryID string, count int64) {
	for _, o := range m {
		o.OnCorpusComplete(queryID, count)
	}
}

// LogObserver writes progress to slog: per-document events at debug level,
// per-query completions at info.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver() *LogObserver {
	return &LogObserver{logger: slog.Default().With("component", "scanner")}
}

func (o *LogObserver) OnQueryIndexed(queryID string) {
	o.logger.Debug("query indexed", "query_id", queryID)
}

func (o *LogObserver) OnDocumentScanned(queryID, docID string, matched bool, stats ScanStats) {
	o.logger.Debug("document scanned",
		"query_id", queryID,
		"document_id", docID,
		"matched", matched,
		"hits", stats.Hits,
		"verified", stats.Verified,
		"duration", stats.Duration,
	)
}

func (o *LogObserver) OnCorpusComplete(queryID string, count int64) {
	o.logger.Info("corpus complete", "query_id", queryID, "matched_documents", count)
}

// MetricsObserver feeds the Prometheus collectors.
type MetricsObserver struct {
	m *metrics.Metrics
}

func NewMetricsObserver(m *metrics.Metrics) *MetricsObserver {
	return &MetricsObserver{m: m}
}

func (o *MetricsObserver) OnQueryIndexed(string) {
	o.m.QueriesIndexedTotal.Inc()
}

func (o *MetricsObserver) OnDocumentScanned(queryID, docID string, matched bool, stats ScanStats) {
	outcome := "unmatched"
	if matched {
		outcome = "matched"
	}
	o.m.DocsScannedTotal.WithLabelValues(outcome).Inc()
	o.m.CandidateHitsTotal.Add(float64(stats.Hits))
	o.m.VerificationsTotal.Add(float64(stats.Verified))
	o.m.SpansMatchedTotal.Add(float64(stats.Spans))
	o.m.ScanDuration.WithLabelValues(stats.Strategy).Observe(stats.Duration.Seconds())
}

func (o *MetricsObserver) OnCorpusComplete(string, int64) {}
