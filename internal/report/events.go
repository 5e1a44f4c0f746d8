// Package report publishes scan progress as Kafka events and aggregates
// them for live monitoring. The emitter is a scan.Observer; the aggregator
// consumes the event stream and serves rolled-up stats over HTTP.
package report

import "time"

type EventType string

const (
	EventQueryIndexed    EventType = "query_indexed"
	EventDocumentScanned EventType = "document_scanned"
	EventCorpusComplete  EventType = "corpus_complete"
)

// ScanEvent is the wire format for all scan progress events; Type
// discriminates which fields are meaningful.
type ScanEvent struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id"`
	QueryID    string    `json:"query_id"`
	DocumentID string    `json:"document_id,omitempty"`
	Matched    bool      `json:"matched,omitempty"`
	Spans      int       `json:"spans,omitempty"`
	Hits       int       `json:"hits,omitempty"`
	Verified   int       `json:"verified,omitempty"`
	LatencyUs  int64     `json:"latency_us,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	Count      int64     `json:"count,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
