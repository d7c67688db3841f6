package goLink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	internalflows "github.com/MrEthical07/goLink/internal/flows"
	"github.com/MrEthical07/goLink/internal/limiters"
	"github.com/MrEthical07/goLink/internal/stores"
)

// Engine runs the two-step linking workflow: InitiateLinking issues a
// verification code for an external account, ConfirmLinking persists the
// link once the requesting account echoes the code back.
//
// Engine methods are safe for concurrent use after [Builder.Build]. Pending
// registrations live only in this process.
type Engine struct {
	config   Config
	store    IdentityStore
	notifier Notifier
	messages MessageProvider
	pending  *stores.PendingTable
	limiter  *limiters.LinkLimiter
	audit    *auditDispatcher
	metrics  *Metrics
	logger   *slog.Logger
	flows    internalflows.Deps

	// mu serializes store checks, pending table mutation and store writes.
	mu sync.Mutex

	now          func() time.Time
	generateCode func() (string, error)
	newRequestID func() string

	sweepStop chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// Close stops the background sweeper and drains the audit queue.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.sweepStop != nil {
			close(e.sweepStop)
			<-e.sweepDone
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// AuditStats reports the audit queue depth, dropped events and sink panics.
// It is zero when audit is disabled.
func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{}
	}
	return e.audit.Stats()
}

// MetricsSnapshot returns a copy of the engine counters. It is empty when
// metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// PendingCount reports the number of pending registrations, expired entries
// not yet swept included.
func (e *Engine) PendingCount() int {
	if e == nil || e.pending == nil {
		return 0
	}
	return e.pending.Len()
}

// Sweep evicts every pending registration expired at now and returns how
// many were evicted. The background sweeper calls it with the engine clock.
func (e *Engine) Sweep(now time.Time) int {
	if e == nil || e.pending == nil {
		return 0
	}

	e.mu.Lock()
	evicted := e.pending.Sweep(now)
	e.mu.Unlock()

	for _, entry := range evicted {
		e.metricInc(MetricPendingExpired)
		e.emitAudit(context.Background(), auditEventLinkExpired, false, entry.RequestingAccount, entry.ExternalAccountID, entry.RequestID, nil, func() map[string]string {
			return map[string]string{
				"trigger": "sweep",
			}
		})
	}
	if len(evicted) > 0 {
		e.logger.Debug("pending registrations expired", "count", len(evicted))
	}
	return len(evicted)
}

func (e *Engine) startSweeper(interval time.Duration) {
	e.sweepStop = make(chan struct{})
	e.sweepDone = make(chan struct{})

	go func() {
		defer close(e.sweepDone)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.Sweep(e.now())
			case <-e.sweepStop:
				return
			}
		}
	}()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
