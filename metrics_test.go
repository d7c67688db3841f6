package goLink

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricInitiateSuccess)

	if got := m.Value(MetricInitiateSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricInitiateSuccess)
	m.Inc(MetricInitiateSuccess)
	m.Inc(MetricInitiateSuccess)

	if got := m.Value(MetricInitiateSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricConfirmSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricConfirmSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		20 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		5 * time.Second,
		30 * time.Second,
	}

	for _, d := range observations {
		m.Observe(MetricNotificationLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricNotificationLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricInitiateSuccess)
	m.Inc(MetricInitiateFailure)
	m.Inc(MetricInitiateFailure)
	m.Observe(MetricNotificationLatency, 12*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricInitiateSuccess] != 1 {
		t.Fatalf("expected MetricInitiateSuccess=1 got %d", snap.Counters[MetricInitiateSuccess])
	}
	if snap.Counters[MetricInitiateFailure] != 2 {
		t.Fatalf("expected MetricInitiateFailure=2 got %d", snap.Counters[MetricInitiateFailure])
	}
	if len(snap.Histograms[MetricNotificationLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricNotificationLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricNotificationLatency][0])
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricConfirmSuccess)
	m.Observe(MetricNotificationLatency, time.Second)
	if got := m.Value(MetricConfirmSuccess); got != 0 {
		t.Fatalf("expected 0 from nil metrics, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}
