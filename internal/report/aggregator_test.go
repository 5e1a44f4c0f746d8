package report

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

func feed(t *testing.T, agg *Aggregator, events ...ScanEvent) {
	t.Helper()
	handler := HandleEvent(agg)
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			t.Fatal(err)
		}
		if err := handler(context.Background(), []byte(event.QueryID), value); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
}

func TestAggregatorCounts(t *testing.T) {
	agg := NewAggregator()
	feed(t, agg,
		ScanEvent{Type: EventQueryIndexed, RunID: "r1", QueryID: "q1"},
		ScanEvent{Type: EventDocumentScanned, RunID: "r1", QueryID: "q1", DocumentID: "d1", Matched: true, Spans: 2, Hits: 5, Verified: 9, LatencyUs: 120},
		ScanEvent{Type: EventDocumentScanned, RunID: "r1", QueryID: "q1", DocumentID: "d2", Hits: 1, Verified: 1, LatencyUs: 80},
		ScanEvent{Type: EventCorpusComplete, RunID: "r1", QueryID: "q1", Count: 1, Timestamp: time.Now().UTC()},
	)

	stats := agg.Stats()
	if stats.QueriesIndexed != 1 {
		t.Errorf("QueriesIndexed = %d, want 1", stats.QueriesIndexed)
	}
	if stats.DocsScanned != 2 {
		t.Errorf("DocsScanned = %d, want 2", stats.DocsScanned)
	}
	if stats.DocsMatched != 1 {
		t.Errorf("DocsMatched = %d, want 1", stats.DocsMatched)
	}
	if stats.SpansMatched != 2 {
		t.Errorf("SpansMatched = %d, want 2", stats.SpansMatched)
	}
	if stats.CandidateHits != 6 {
		t.Errorf("CandidateHits = %d, want 6", stats.CandidateHits)
	}
	if stats.Verifications != 10 {
		t.Errorf("Verifications = %d, want 10", stats.Verifications)
	}
	if stats.CompletedRuns != 1 {
		t.Errorf("CompletedRuns = %d, want 1", stats.CompletedRuns)
	}
	if stats.LastRunID != "r1" {
		t.Errorf("LastRunID = %q, want r1", stats.LastRunID)
	}
	if len(stats.TopQueries) != 1 || stats.TopQueries[0].QueryID != "q1" || stats.TopQueries[0].Count != 1 {
		t.Errorf("TopQueries = %+v", stats.TopQueries)
	}
}

func TestAggregatorLatencyPercentiles(t *testing.T) {
	agg := NewAggregator()
	var events []ScanEvent
	for i := 1; i <= 100; i++ {
		events = append(events, ScanEvent{
			Type: EventDocumentScanned, RunID: "r1", QueryID: "q1",
			DocumentID: "d", LatencyUs: int64(i),
		})
	}
	feed(t, agg, events...)

	stats := agg.Stats()
	if stats.P50LatencyUs < 45 || stats.P50LatencyUs > 55 {
		t.Errorf("P50LatencyUs = %d, want around 50", stats.P50LatencyUs)
	}
	if stats.P99LatencyUs < 95 {
		t.Errorf("P99LatencyUs = %d, want >= 95", stats.P99LatencyUs)
	}
	if stats.AvgLatencyUs != 50.5 {
		t.Errorf("AvgLatencyUs = %g, want 50.5", stats.AvgLatencyUs)
	}
}

func TestAggregatorIgnoresMalformedEvent(t *testing.T) {
	agg := NewAggregator()
	handler := HandleEvent(agg)
	if err := handler(context.Background(), nil, []byte("not json")); err != nil {
		t.Fatalf("malformed event returned error: %v", err)
	}
	if got := agg.Stats().DocsScanned; got != 0 {
		t.Errorf("DocsScanned = %d after malformed event, want 0", got)
	}
}

func TestAggregatorTopQueriesOrdered(t *testing.T) {
	agg := NewAggregator()
	var events []ScanEvent
	for i := 0; i < 3; i++ {
		events = append(events, ScanEvent{Type: EventDocumentScanned, QueryID: "busy", DocumentID: "d", Matched: true})
	}
	events = append(events, ScanEvent{Type: EventDocumentScanned, QueryID: "quiet", DocumentID: "d", Matched: true})
	feed(t, agg, events...)

	top := agg.Stats().TopQueries
	if len(top) != 2 || top[0].QueryID != "busy" || top[0].Count != 3 {
		t.Errorf("TopQueries = %+v", top)
	}
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	feed(t, agg, ScanEvent{Type: EventDocumentScanned, QueryID: "q1", DocumentID: "d1", Matched: true})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	NewHandler(agg).Stats(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats AggregatedStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stats.DocsScanned != 1 || stats.DocsMatched != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
