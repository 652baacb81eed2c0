package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics records cache lookup and persistence metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type CacheMetrics interface {
	// RecordLookup records a cache lookup as a hit or a miss.
	RecordLookup(ctx context.Context, store, namespace string, hit bool)

	// RecordWrite records a store write and whether persistence failed.
	RecordWrite(ctx context.Context, store, namespace string, err error)

	// RecordSweep records the number of expired records removed by a sweep.
	RecordSweep(ctx context.Context, store string, removed int64)
}

// cacheMetrics is the concrete implementation of CacheMetrics.
type cacheMetrics struct {
	meter       metric.Meter
	hitCount    metric.Int64Counter
	missCount   metric.Int64Counter
	writeCount  metric.Int64Counter
	writeErrors metric.Int64Counter
	sweepCount  metric.Int64Counter
}

// NewCacheMetrics creates a CacheMetrics instance with the given meter.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	hitCount, err := meter.Int64Counter(
		"cache.lookup.hits",
		metric.WithDescription("Number of cache lookups served from the store"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	missCount, err := meter.Int64Counter(
		"cache.lookup.misses",
		metric.WithDescription("Number of cache lookups that fell through to the wrapped tool"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	writeCount, err := meter.Int64Counter(
		"cache.store.writes",
		metric.WithDescription("Number of store writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	writeErrors, err := meter.Int64Counter(
		"cache.store.write_errors",
		metric.WithDescription("Number of store writes that failed to persist"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	sweepCount, err := meter.Int64Counter(
		"cache.sweep.removed",
		metric.WithDescription("Number of expired records removed by sweeps"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &cacheMetrics{
		meter:       meter,
		hitCount:    hitCount,
		missCount:   missCount,
		writeCount:  writeCount,
		writeErrors: writeErrors,
		sweepCount:  sweepCount,
	}, nil
}

// RecordLookup records a hit or miss with store and namespace attributes.
func (m *cacheMetrics) RecordLookup(ctx context.Context, store, namespace string, hit bool) {
	opt := metric.WithAttributes(lookupAttrs(store, namespace)...)
	if hit {
		m.hitCount.Add(ctx, 1, opt)
	} else {
		m.missCount.Add(ctx, 1, opt)
	}
}

// RecordWrite records a store write, incrementing the error counter on failure.
func (m *cacheMetrics) RecordWrite(ctx context.Context, store, namespace string, err error) {
	opt := metric.WithAttributes(lookupAttrs(store, namespace)...)
	m.writeCount.Add(ctx, 1, opt)
	if err != nil {
		m.writeErrors.Add(ctx, 1, opt)
	}
}

// RecordSweep records expired-record removals for a store.
func (m *cacheMetrics) RecordSweep(ctx context.Context, store string, removed int64) {
	if removed <= 0 {
		return
	}
	m.sweepCount.Add(ctx, removed, metric.WithAttributes(
		attribute.String("cache.store", store),
	))
}

func lookupAttrs(store, namespace string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("cache.store", store),
	}
	if namespace != "" {
		attrs = append(attrs, attribute.String("cache.namespace", namespace))
	}
	return attrs
}

// NopCacheMetrics returns a CacheMetrics implementation that does nothing.
func NopCacheMetrics() CacheMetrics {
	return &noopCacheMetrics{}
}

// noopCacheMetrics is a metrics implementation that does nothing.
type noopCacheMetrics struct{}

func (m *noopCacheMetrics) RecordLookup(ctx context.Context, store, namespace string, hit bool) {}
func (m *noopCacheMetrics) RecordWrite(ctx context.Context, store, namespace string, err error) {}
func (m *noopCacheMetrics) RecordSweep(ctx context.Context, store string, removed int64)        {}

var _ CacheMetrics = (*cacheMetrics)(nil)
var _ CacheMetrics = (*noopCacheMetrics)(nil)
