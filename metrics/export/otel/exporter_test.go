package otel

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	goEMS "github.com/MrEthical07/goEMS"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goEMS.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goEMS.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goEMS.MetricsSnapshot{
		Counters:   make(map[goEMS.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goEMS.MetricID][]uint64, len(f.snapshot.Histograms)),
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

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
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
	meter := provider.Meter("goems-test")

	src := &fakeSource{
		snapshot: goEMS.MetricsSnapshot{
			Counters: map[goEMS.MetricID]uint64{
				goEMS.MetricLogin:         3,
				goEMS.MetricMirrorFailure: 2,
			},
			Histograms: map[goEMS.MetricID][]uint64{
				goEMS.MetricMirrorLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
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

	checks := map[string]int64{
		"goems_login_total":                          3,
		"goems_mirror_failure_total":                 2,
		"goems_audit_dropped_total":                  1,
		"goems_mirror_latency_seconds_bucket_le_inf": 8,
		"goems_mirror_latency_seconds_count":         8,
	}
	for name, want := range checks {
		got, ok := findInt64(rm, name)
		if !ok {
			t.Fatalf("metric %s not collected", name)
		}
		if got != want {
			t.Fatalf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newTestMeter()

	if _, err := NewExporter(provider.Meter("goems-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("goems-test")

	src := &fakeSource{
		snapshot: goEMS.MetricsSnapshot{
			Counters: map[goEMS.MetricID]uint64{
				goEMS.MetricLogin: 1,
			},
			Histograms: map[goEMS.MetricID][]uint64{
				goEMS.MetricMirrorLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
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
			src.snapshot.Counters[goEMS.MetricLogin] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
