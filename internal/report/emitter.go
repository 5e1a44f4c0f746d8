package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/overlap-ml/neardup/internal/scan"
	"github.com/overlap-ml/neardup/pkg/kafka"
	"github.com/overlap-ml/neardup/pkg/resilience"
)

const (
	defaultBuffer        = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Emitter is a scan.Observer that publishes scan events to Kafka. Events go
// through a buffered channel so delivery never blocks the scan hot path,
// and are flushed in batches, either when a batch fills or on a timer. A
// circuit breaker around the producer keeps a dead broker from burning a
// publish timeout per batch.
type Emitter struct {
	producer *kafka.Producer
	breaker  *resilience.CircuitBreaker
	runID    string
	eventCh  chan ScanEvent
	done     chan struct{}
	logger   *slog.Logger
	onDrop   func()
}

// NewEmitter creates an Emitter for one run. onDrop, if non-nil, is called
// for every event dropped because the buffer was full.
func NewEmitter(producer *kafka.Producer, runID string, bufferSize int, onDrop func()) *Emitter {
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	return &Emitter{
		producer: producer,
		breaker:  resilience.NewCircuitBreaker("scan-events", resilience.CircuitBreakerConfig{}),
		runID:    runID,
		eventCh:  make(chan ScanEvent, bufferSize),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "event-emitter"),
		onDrop:   onDrop,
	}
}

// Start launches the background flush loop.
func (e *Emitter) Start(ctx context.Context) {
	go e.flushLoop(ctx)
	e.logger.Info("event emitter started",
		"buffer_size", cap(e.eventCh),
		"batch_size", defaultBatchSize,
	)
}

// Close stops accepting events and waits for the buffer to drain.
func (e *Emitter) Close() {
	close(e.eventCh)
	<-e.done
}

func (e *Emitter) OnQueryIndexed(queryID string) {
	e.track(ScanEvent{
		Type:      EventQueryIndexed,
		RunID:     e.runID,
		QueryID:   queryID,
		Timestamp: time.Now().UTC(),
	})
}

func (e *Emitter) OnDocumentScanned(queryID, docID string, matched bool, stats scan.ScanStats) {
	e.track(ScanEvent{
		Type:       EventDocumentScanned,
		RunID:      e.runID,
		QueryID:    queryID,
		DocumentID: docID,
		Matched:    matched,
		Spans:      stats.Spans,
		Hits:       stats.Hits,
		Verified:   stats.Verified,
		LatencyUs:  stats.Duration.Microseconds(),
		Strategy:   stats.Strategy,
		Timestamp:  time.Now().UTC(),
	})
}

func (e *Emitter) OnCorpusComplete(queryID string, count int64) {
	e.track(ScanEvent{
		Type:      EventCorpusComplete,
		RunID:     e.runID,
		QueryID:   queryID,
		Count:     count,
		Timestamp: time.Now().UTC(),
	})
}

func (e *Emitter) track(event ScanEvent) {
	select {
	case e.eventCh <- event:
	default:
		if e.onDrop != nil {
			e.onDrop()
		}
		e.logger.Warn("scan event dropped (buffer full)", "type", string(event.Type))
	}
}

// flushLoop accumulates events into batches and flushes when a batch fills
// or the ticker fires. On shutdown it drains whatever is left with a short
// deadline.
func (e *Emitter) flushLoop(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(defaultFlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, defaultBatchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		e.publish(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-e.eventCh:
			if !ok {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				flush(flushCtx)
				cancel()
				return
			}
			batch = append(batch, kafka.Event{Key: event.QueryID, Value: event})
			if len(batch) >= defaultBatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
		drain:
			for len(batch) < cap(e.eventCh)+defaultBatchSize {
				select {
				case event, ok := <-e.eventCh:
					if !ok {
						break drain
					}
					batch = append(batch, kafka.Event{Key: event.QueryID, Value: event})
				default:
					break drain
				}
			}
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(flushCtx)
			cancel()
			return
		}
	}
}

func (e *Emitter) publish(ctx context.Context, batch []kafka.Event) {
	err := e.breaker.Execute(func() error {
		return e.producer.PublishBatch(ctx, batch)
	})
	if err != nil {
		e.logger.Debug("scan event batch not published", "events", len(batch), "error", err)
	}
}
