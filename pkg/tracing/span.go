// Package tracing times the phases of a scan run. Each scanner invocation
// opens one root span tagged with the run identifier and nests child spans
// for corpus loading, scanning, and reporting; at run end the span tree is
// written to slog so per-phase durations land next to the run's other log
// lines.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

var spanKey contextKey

// Span is one timed phase of a run. Children are added by StartChildSpan
// from any goroutine.
type Span struct {
	Name    string
	RunID   string
	Started time.Time
	Elapsed time.Duration

	mu       sync.Mutex
	children []*Span
	attrs    map[string]any
}

// StartSpan opens the root span for a run and stores it in the returned
// context.
func StartSpan(ctx context.Context, name, runID string) (context.Context, *Span) {
	span := &Span{
		Name:    name,
		RunID:   runID,
		Started: time.Now(),
		attrs:   make(map[string]any),
	}
	return context.WithValue(ctx, spanKey, span), span
}

// StartChildSpan opens a phase span under the span carried by ctx. With no
// parent in ctx the child is a detached root with an empty run id.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{
		Name:    name,
		Started: time.Now(),
		attrs:   make(map[string]any),
	}
	if parent := SpanFromContext(ctx); parent != nil {
		child.RunID = parent.RunID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey, child), child
}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey).(*Span)
	return span
}

// End fixes the span's elapsed time. Attributes set after End still appear
// in the logged tree.
func (s *Span) End() {
	s.Elapsed = time.Since(s.Started)
}

// SetAttr attaches a key-value pair reported alongside the span's duration.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs[key] = value
	s.mu.Unlock()
}

// Log writes the span and its descendants to slog, one line per phase.
func (s *Span) Log() {
	s.logTree(0)
}

func (s *Span) logTree(depth int) {
	s.mu.Lock()
	line := make([]any, 0, 8+2*len(s.attrs))
	line = append(line,
		"run_id", s.RunID,
		"phase", s.Name,
		"duration_ms", s.Elapsed.Milliseconds(),
		"depth", depth,
	)
	for k, v := range s.attrs {
		line = append(line, k, v)
	}
	children := s.children
	s.mu.Unlock()

	slog.Info("phase timing", line...)
	for _, child := range children {
		child.logTree(depth + 1)
	}
}
