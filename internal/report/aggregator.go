package report

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/overlap-ml/neardup/pkg/kafka"
)

// AggregatedStats is a point-in-time snapshot of scan activity across runs,
// built from the scan-events topic.
type AggregatedStats struct {
	QueriesIndexed  int64        `json:"queries_indexed"`
	DocsScanned     int64        `json:"docs_scanned"`
	DocsMatched     int64        `json:"docs_matched"`
	SpansMatched    int64        `json:"spans_matched"`
	CandidateHits   int64        `json:"candidate_hits"`
	Verifications   int64        `json:"verifications"`
	AvgLatencyUs    float64      `json:"avg_latency_us"`
	P50LatencyUs    int64        `json:"p50_latency_us"`
	P95LatencyUs    int64        `json:"p95_latency_us"`
	P99LatencyUs    int64        `json:"p99_latency_us"`
	TopQueries      []QueryCount `json:"top_queries"`
	DocsPerMinute   float64      `json:"docs_per_minute"`
	CompletedRuns   int64        `json:"completed_runs"`
	LastRunID       string       `json:"last_run_id,omitempty"`
	LastRunComplete time.Time    `json:"last_run_complete,omitempty"`
}

// QueryCount pairs a query id with its matched-document count.
type QueryCount struct {
	QueryID string `json:"query_id"`
	Count   int64  `json:"count"`
}

// Aggregator consumes scan events from Kafka and maintains rolling
// statistics for the watch binary's stats endpoint.
type Aggregator struct {
	mu             sync.RWMutex
	queriesIndexed atomic.Int64
	docsScanned    atomic.Int64
	docsMatched    atomic.Int64
	spansMatched   atomic.Int64
	candidateHits  atomic.Int64
	verifications  atomic.Int64
	latencies      []int64
	matchCounts    map[string]int64
	completeSeen   map[string]struct{}
	lastRunID      string
	lastComplete   time.Time
	startTime      time.Time

	logger *slog.Logger
}

// NewAggregator creates an empty Aggregator. Feed it by wiring HandleEvent
// as a consumer's handler.
func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:    make([]int64, 0, 10000),
		matchCounts:  make(map[string]int64),
		completeSeen: make(map[string]struct{}),
		startTime:    time.Now(),
		logger:       slog.Default().With("component", "scan-aggregator"),
	}
}

// HandleEvent returns the kafka.MessageHandler that feeds an Aggregator.
// Malformed events are logged and skipped so one bad message cannot stall
// the consumer group.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ScanEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode scan event", "error", err)
			return nil
		}
		agg.record(event)
		return nil
	}
}

func (a *Aggregator) record(event ScanEvent) {
	switch event.Type {
	case EventQueryIndexed:
		a.queriesIndexed.Add(1)
	case EventDocumentScanned:
		a.docsScanned.Add(1)
		a.candidateHits.Add(int64(event.Hits))
		a.verifications.Add(int64(event.Verified))
		if event.Matched {
			a.docsMatched.Add(1)
			a.spansMatched.Add(int64(event.Spans))
		}
		a.mu.Lock()
		a.latencies = append(a.latencies, event.LatencyUs)
		if event.Matched {
			a.matchCounts[event.QueryID]++
		}
		a.mu.Unlock()
	case EventCorpusComplete:
		a.mu.Lock()
		runKey := event.RunID + "/" + event.QueryID
		if _, seen := a.completeSeen[runKey]; !seen {
			a.completeSeen[runKey] = struct{}{}
		}
		a.lastRunID = event.RunID
		a.lastComplete = event.Timestamp
		a.mu.Unlock()
	default:
		a.logger.Warn("unknown scan event type", "type", string(event.Type))
	}
}

// Stats computes a snapshot of the aggregated counters.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		QueriesIndexed:  a.queriesIndexed.Load(),
		DocsScanned:     a.docsScanned.Load(),
		DocsMatched:     a.docsMatched.Load(),
		SpansMatched:    a.spansMatched.Load(),
		CandidateHits:   a.candidateHits.Load(),
		Verifications:   a.verifications.Load(),
		CompletedRuns:   int64(len(a.completeSeen)),
		LastRunID:       a.lastRunID,
		LastRunComplete: a.lastComplete,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.matchCounts, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.DocsPerMinute = float64(stats.DocsScanned) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for id, count := range counts {
		result = append(result, QueryCount{QueryID: id, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].QueryID < result[j].QueryID
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
