// Package telemetry implements the non-blocking usage-event emitter:
// producers push onto a bounded channel and a background worker batches
// events to a Sink by size or interval, whichever comes first.
package telemetry

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives batches of events. Console/file/pub-sub sinks are out of
// scope per spec.md §1; only the interface and a console sink for
// local/dev use live here.
type Sink interface {
	Deliver(batch []UsageEvent) error
}

// ConsoleSink logs each batch via the standard logger.
type ConsoleSink struct {
	Logger *log.Logger
}

func (s *ConsoleSink) Deliver(batch []UsageEvent) error {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	for _, e := range batch {
		logger.Printf("telemetry: %s %s moniker=%s outcome=%s latency_ms=%d", e.Operation, e.RequestID, e.Moniker, e.Outcome, e.LatencyMS)
	}
	return nil
}

// Stats is a point-in-time snapshot of emitter counters.
type Stats struct {
	Emitted    uint64
	Dropped    uint64
	Errors     uint64
	QueueDepth int
}

// Emitter is a non-blocking, best-effort usage-event emitter with a bounded
// queue and a background batching worker.
type Emitter struct {
	sink          Sink
	queue         chan UsageEvent
	batchSize     int
	flushInterval time.Duration
	logger        *log.Logger

	emitted atomic.Uint64
	dropped atomic.Uint64
	errors  atomic.Uint64

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewEmitter constructs an Emitter and starts its background worker.
func NewEmitter(sink Sink, maxQueueSize, batchSize int, flushInterval time.Duration, logger *log.Logger) *Emitter {
	if maxQueueSize <= 0 {
		maxQueueSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	e := &Emitter{
		sink:          sink,
		queue:         make(chan UsageEvent, maxQueueSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		done:          make(chan struct{}),
	}
	e.wg.Add(1)
	go e.processLoop()
	return e
}

// Emit is non-blocking and best-effort: it pushes onto the bounded queue
// and drops-and-counts if full.
func (e *Emitter) Emit(event UsageEvent) bool {
	select {
	case e.queue <- event:
		e.emitted.Add(1)
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

func (e *Emitter) log() *log.Logger {
	if e.logger != nil {
		return e.logger
	}
	return log.Default()
}

func (e *Emitter) processLoop() {
	defer e.wg.Done()

	batch := make([]UsageEvent, 0, e.batchSize)
	ticker := time.NewTicker(e.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := e.sink.Deliver(batch); err != nil {
			e.errors.Add(1)
			e.log().Printf("telemetry: sink delivery failed: %v", err)
		}
		batch = make([]UsageEvent, 0, e.batchSize)
	}

	for {
		select {
		case event, ok := <-e.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= e.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-e.done:
			// Drain whatever is already queued, then flush and exit. The
			// caller's Stop context bounds only how long Stop waits for this.
			for {
				select {
				case event, ok := <-e.queue:
					if !ok {
						flush()
						return
					}
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Stop flushes the queue with a bounded timeout via ctx, then stops the
// background worker.
func (e *Emitter) Stop(ctx context.Context) {
	e.stopOnce.Do(func() {
		close(e.done)
	})

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.log().Printf("telemetry: stop timed out before drain completed")
	}
}

// Stats returns a snapshot of emitter counters, surfaced via /health.
func (e *Emitter) Stats() Stats {
	return Stats{
		Emitted:    e.emitted.Load(),
		Dropped:    e.dropped.Load(),
		Errors:     e.errors.Load(),
		QueueDepth: len(e.queue),
	}
}
