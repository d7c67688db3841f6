package otel

import (
	"context"
	"sync"
	"testing"

	goLink "github.com/MrEthical07/goLink"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goLink.MetricsSnapshot
	dropped  uint64
	queued   int
	pending  int
}

func (f *fakeSource) MetricsSnapshot() goLink.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goLink.MetricsSnapshot{
		Counters:   make(map[goLink.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goLink.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditStats() goLink.AuditStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return goLink.AuditStats{Queued: f.queued, Dropped: f.dropped}
}

func (f *fakeSource) PendingCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pending
}

type nopStore struct{}

func (nopStore) Exists(context.Context, string) (bool, error)             { return false, nil }
func (nopStore) Set(context.Context, string, goLink.LinkedAccount) error { return nil }
func (nopStore) Save(context.Context) error                             { return nil }

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findSum(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("golink-test")

	src := &fakeSource{
		snapshot: goLink.MetricsSnapshot{
			Counters: map[goLink.MetricID]uint64{
				goLink.MetricConfirmSuccess: 3,
			},
			Histograms: map[goLink.MetricID][]uint64{
				goLink.MetricNotificationLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
		queued:  4,
		pending: 2,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}
	if v, ok := findSum(rm, "golink_confirm_success_total"); !ok || v != 3 {
		t.Fatalf("expected confirm success counter 3, got %d (found=%v)", v, ok)
	}
	if v, ok := findSum(rm, "golink_notification_latency_seconds_count"); !ok || v != 8 {
		t.Fatalf("expected latency count 8, got %d (found=%v)", v, ok)
	}
	if v, ok := findSum(rm, "golink_notification_latency_seconds_bucket_le_0_25"); !ok || v != 3 {
		t.Fatalf("expected cumulative bucket 3, got %d (found=%v)", v, ok)
	}
	if v, ok := findSum(rm, "golink_audit_dropped_total"); !ok || v != 1 {
		t.Fatalf("expected audit dropped 1, got %d (found=%v)", v, ok)
	}
	if v, ok := findSum(rm, "golink_pending_registrations"); !ok || v != 2 {
		t.Fatalf("expected pending registrations 2, got %d (found=%v)", v, ok)
	}
	if v, ok := findSum(rm, "golink_audit_queue_depth"); !ok || v != 4 {
		t.Fatalf("expected audit queue depth 4, got %d (found=%v)", v, ok)
	}
	if _, ok := findSum(rm, "golink_audit_sink_panics_total"); !ok {
		t.Fatal("expected audit sink panics counter to be registered")
	}
}

func TestExporterFromEngine(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("golink-test")

	engine, err := goLink.New().
		WithIdentityStore(nopStore{}).
		WithNotifier(goLink.NotifierFunc(func(context.Context, goLink.Payload) error { return nil })).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	exp, err := NewOTelExporter(meter, engine)
	if err != nil {
		t.Fatalf("NewOTelExporter failed: %v", err)
	}
	defer exp.Close()

	if _, err := engine.InitiateLinking(context.Background(), "Alice", "bad"); err == nil {
		t.Fatal("expected invalid external id")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if v, ok := findSum(rm, "golink_invalid_external_id_total"); !ok || v != 1 {
		t.Fatalf("expected invalid external id counter 1, got %d (found=%v)", v, ok)
	}
	if v, ok := findSum(rm, "golink_pending_registrations"); !ok || v != 0 {
		t.Fatalf("expected no pending registrations, got %d (found=%v)", v, ok)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newTestMeter()
	meter := provider.Meter("golink-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("golink-test")

	src := &fakeSource{
		snapshot: goLink.MetricsSnapshot{
			Counters: map[goLink.MetricID]uint64{
				goLink.MetricInitiateSuccess: 1,
			},
			Histograms: map[goLink.MetricID][]uint64{
				goLink.MetricNotificationLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goLink.MetricInitiateSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
