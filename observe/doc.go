// Package observe provides observability primitives for the caching layer.
//
// It is a pure instrumentation library: structured logging, cache lookup
// metrics, and invocation tracing. Consumers wire the observer into the
// result stores and the cache-aside wrapper; no I/O happens here beyond
// exporter setup.
package observe
