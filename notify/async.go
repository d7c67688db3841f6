package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	goLink "github.com/MrEthical07/goLink"
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("notifier closed")
)

// AsyncConfig configures an Async notifier.
type AsyncConfig struct {
	// BufferSize bounds the queue. Values <= 0 mean 1.
	BufferSize int
	// Timeout bounds each delivery. Zero means no bound.
	Timeout time.Duration
}

// Async queues payloads and delivers them from one goroutine. Send returns
// once the payload is queued, so a nil error means accepted, not delivered;
// delivery failures are logged and counted in Failed.
type Async struct {
	next    goLink.Notifier
	timeout time.Duration
	logger  *slog.Logger

	queue chan goLink.Payload
	mu    sync.RWMutex
	open  bool
	wg    sync.WaitGroup

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewAsync(next goLink.Notifier, cfg AsyncConfig, logger *slog.Logger) *Async {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	a := &Async{
		next:    next,
		timeout: cfg.Timeout,
		logger:  logger,
		queue:   make(chan goLink.Payload, cfg.BufferSize),
		open:    true,
	}

	a.wg.Add(1)
	go a.run()

	return a
}

func (a *Async) run() {
	defer a.wg.Done()

	for payload := range a.queue {
		a.deliver(payload)
	}
}

func (a *Async) deliver(payload goLink.Payload) {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.next.Send(ctx, payload); err != nil {
		a.failed.Add(1)
		a.logger.Warn("queued notification failed", "error", err)
	}
}

// Send queues payload without blocking. A full queue returns ErrQueueFull.
func (a *Async) Send(ctx context.Context, payload goLink.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.open {
		return ErrClosed
	}
	select {
	case a.queue <- payload:
		return nil
	default:
		a.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting payloads, delivers everything already queued and
// returns. Safe to call more than once.
func (a *Async) Close() {
	a.mu.Lock()
	if a.open {
		a.open = false
		close(a.queue)
	}
	a.mu.Unlock()

	a.wg.Wait()
}

// Dropped returns how many payloads were refused because the queue was full.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Failed returns how many queued payloads the wrapped notifier failed to deliver.
func (a *Async) Failed() uint64 {
	return a.failed.Load()
}
