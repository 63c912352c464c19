package otel

import (
	"context"
	"sync"
	"testing"

	goGuard "github.com/MrEthical07/goGuard"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goGuard.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goGuard.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goGuard.MetricsSnapshot{
		Counters:   make(map[goGuard.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goGuard.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestExporterCollectsCountersAndBuckets(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{
				goGuard.MetricAccessPermit: 3,
			},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricResolveLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(provider.Meter("goguard-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
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

	permit, ok := findMetric(rm, "goguard_access_permit_total")
	if !ok {
		t.Fatal("goguard_access_permit_total not collected")
	}
	sum, ok := permit.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 3 {
		t.Fatalf("unexpected permit data: %#v", permit.Data)
	}

	buckets, ok := findMetric(rm, "goguard_resolve_latency_seconds_bucket")
	if !ok {
		t.Fatal("bucket gauge not collected")
	}
	gauge, ok := buckets.Data.(metricdata.Gauge[int64])
	if !ok || len(gauge.DataPoints) != 8 {
		t.Fatalf("expected 8 bucket points, got %#v", buckets.Data)
	}
	for _, dp := range gauge.DataPoints {
		le, ok := dp.Attributes.Value("le")
		if !ok {
			t.Fatal("bucket point without le attribute")
		}
		if le.AsString() == "+Inf" && dp.Value != 8 {
			t.Fatalf("expected +Inf bucket 8, got %d", dp.Value)
		}
	}

	if _, ok := findMetric(rm, "goguard_audit_dropped_total"); !ok {
		t.Fatal("audit dropped counter not collected")
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader()

	if _, err := NewExporterFromSource(provider.Meter("goguard-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewExporter(provider.Meter("goguard-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{goGuard.MetricAccessPermit: 1},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricResolveLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(provider.Meter("goguard-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goGuard.MetricAccessPermit] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
