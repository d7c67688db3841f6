package goLink

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// AuditStats describes the audit queue of an Engine.
type AuditStats struct {
	// Queued is the number of events waiting for the sink.
	Queued int
	// Dropped counts events discarded because the queue was full.
	Dropped uint64
	// SinkPanics counts events whose sink Emit panicked.
	SinkPanics uint64
}

// auditDispatcher hands events to the sink from a single worker so a slow
// webhook or log sink never holds the engine lock.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	logger     *slog.Logger

	queue chan AuditEvent
	// mu guards the close of queue: Emit holds it shared while sending.
	mu     sync.RWMutex
	closed bool
	// stop releases Emit calls blocked on a full queue during Close.
	stop     chan struct{}
	finished chan struct{}
	once     sync.Once

	dropped    atomic.Uint64
	sinkPanics atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger *slog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger:     logger,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
		finished:   make(chan struct{}),
	}
	go d.run()
	return d
}

// run forwards events until Close closes the queue, so everything accepted
// by Emit reaches the sink.
func (d *auditDispatcher) run() {
	defer close(d.finished)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.sinkPanics.Add(1)
			d.logger.Error("audit sink panicked",
				"event_type", event.EventType,
				"request_id", event.RequestID,
				"panic", r,
			)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With DropIfFull a full queue drops the event; otherwise
// Emit waits for space until ctx is done or the dispatcher closes.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events, waits for the queued ones to reach the sink
// and stops the worker. Safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		close(d.stop)
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	<-d.finished
}

func (d *auditDispatcher) Stats() AuditStats {
	if d == nil {
		return AuditStats{}
	}
	return AuditStats{
		Queued:     len(d.queue),
		Dropped:    d.dropped.Load(),
		SinkPanics: d.sinkPanics.Load(),
	}
}

func (d *auditDispatcher) Dropped() uint64 {
	return d.Stats().Dropped
}
