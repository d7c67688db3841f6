package goLink

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricInitiateSuccess counts initiations that reserved a code.
	MetricInitiateSuccess MetricID = iota
	// MetricInitiateFailure counts initiations rejected for any reason.
	MetricInitiateFailure
	// MetricInvalidExternalID counts initiations rejected by external id validation.
	MetricInvalidExternalID
	// MetricAlreadyLinked counts operations rejected because the external id is linked.
	MetricAlreadyLinked
	// MetricCodeCollision counts code draws that hit a live pending code.
	MetricCodeCollision
	// MetricConfirmSuccess counts confirmations that persisted a link.
	MetricConfirmSuccess
	// MetricConfirmFailure counts confirmations rejected for any reason.
	MetricConfirmFailure
	// MetricUnknownCode counts confirmations with an unknown or expired code.
	MetricUnknownCode
	// MetricOwnerMismatch counts confirmations by an account that does not own the code.
	MetricOwnerMismatch
	// MetricPendingExpired counts pending registrations evicted after their TTL.
	MetricPendingExpired
	// MetricPersistenceFailure counts identity store read or write failures.
	MetricPersistenceFailure
	// MetricNotificationSent counts notifications acknowledged by the Notifier.
	MetricNotificationSent
	// MetricNotificationFailed counts notifications the Notifier failed to deliver.
	MetricNotificationFailed
	// MetricRateLimitHit counts calls rejected by the per-account throttle.
	MetricRateLimitHit
	// MetricNotificationLatency is the histogram of Notifier.Send latency.
	MetricNotificationLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the notification latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram. Only MetricNotificationLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricNotificationLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricNotificationLatency].buckets[i])
		}
		s.Histograms[MetricNotificationLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
