package observe

import (
	"context"
	"errors"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (CacheMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewCacheMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

// TestMetrics_HitCounterIncrements verifies cache.lookup.hits is incremented.
func TestMetrics_HitCounterIncrements(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordLookup(context.Background(), "search_results", "search", true)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "cache.lookup.hits")
	if found == nil {
		t.Fatal("cache.lookup.hits metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("expected count 1, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_MissDoesNotIncrementHits verifies hits and misses are separate.
func TestMetrics_MissDoesNotIncrementHits(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordLookup(context.Background(), "search_results", "search", false)
	m.RecordLookup(context.Background(), "search_results", "search", false)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	misses := findMetric(rm, "cache.lookup.misses")
	if misses == nil {
		t.Fatal("cache.lookup.misses metric not found")
	}
	sum, ok := misses.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", misses.Data)
	}
	if sum.DataPoints[0].Value != 2 {
		t.Errorf("expected miss count 2, got %d", sum.DataPoints[0].Value)
	}

	if hits := findMetric(rm, "cache.lookup.hits"); hits != nil {
		if s, ok := hits.Data.(metricdata.Sum[int64]); ok && len(s.DataPoints) > 0 && s.DataPoints[0].Value != 0 {
			t.Errorf("expected hit count 0, got %d", s.DataPoints[0].Value)
		}
	}
}

// TestMetrics_WriteErrorCounter verifies write errors are counted on failure
// only.
func TestMetrics_WriteErrorCounter(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordWrite(context.Background(), "search_results", "search", nil)
	m.RecordWrite(context.Background(), "search_results", "search", errors.New("disk full"))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	writes := findMetric(rm, "cache.store.writes")
	if writes == nil {
		t.Fatal("cache.store.writes metric not found")
	}
	if sum := writes.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 2 {
		t.Errorf("expected write count 2, got %d", sum.DataPoints[0].Value)
	}

	werrs := findMetric(rm, "cache.store.write_errors")
	if werrs == nil {
		t.Fatal("cache.store.write_errors metric not found")
	}
	if sum := werrs.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 1 {
		t.Errorf("expected write error count 1, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_SweepCounter verifies sweep removals accumulate and zero-removal
// sweeps are not recorded.
func TestMetrics_SweepCounter(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordSweep(context.Background(), "facts_db", 3)
	m.RecordSweep(context.Background(), "facts_db", 0)
	m.RecordSweep(context.Background(), "facts_db", 2)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "cache.sweep.removed")
	if found == nil {
		t.Fatal("cache.sweep.removed metric not found")
	}
	if sum := found.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 5 {
		t.Errorf("expected removed total 5, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_LabelsApplied verifies store and namespace attributes.
func TestMetrics_LabelsApplied(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordLookup(context.Background(), "browse_results", "browse", true)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "cache.lookup.hits")
	if found == nil {
		t.Fatal("cache.lookup.hits metric not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}

	attrs := sum.DataPoints[0].Attributes
	var foundStore, foundNS bool
	for iter := attrs.Iter(); iter.Next(); {
		kv := iter.Attribute()
		switch string(kv.Key) {
		case "cache.store":
			foundStore = true
			if kv.Value.AsString() != "browse_results" {
				t.Errorf("expected cache.store='browse_results', got %q", kv.Value.AsString())
			}
		case "cache.namespace":
			foundNS = true
			if kv.Value.AsString() != "browse" {
				t.Errorf("expected cache.namespace='browse', got %q", kv.Value.AsString())
			}
		}
	}
	if !foundStore {
		t.Error("cache.store attribute not found")
	}
	if !foundNS {
		t.Error("cache.namespace attribute not found")
	}
}

// TestMetrics_ConcurrentRecording verifies thread safety.
func TestMetrics_ConcurrentRecording(t *testing.T) {
	m, reader := newTestMetrics(t)

	const numGoroutines = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			m.RecordLookup(context.Background(), "search_results", "search", true)
		}()
	}
	wg.Wait()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := findMetric(rm, "cache.lookup.hits")
	if found == nil {
		t.Fatal("cache.lookup.hits metric not found")
	}
	if sum := found.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != numGoroutines {
		t.Errorf("expected count %d, got %d", numGoroutines, sum.DataPoints[0].Value)
	}
}

// TestNopCacheMetrics verifies the noop implementation is callable.
func TestNopCacheMetrics(t *testing.T) {
	m := NopCacheMetrics()
	m.RecordLookup(context.Background(), "s", "ns", true)
	m.RecordWrite(context.Background(), "s", "ns", errors.New("ignored"))
	m.RecordSweep(context.Background(), "s", 10)
}

// findMetric searches for a metric by name in ResourceMetrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}
