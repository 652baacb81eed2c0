// Package cache provides cache-aside caching for external tool invocations.
//
// It provides deterministic key derivation, TTL'd cache entries, file-backed
// transient result stores, and a Tool wrapper that consults the store before
// invoking the wrapped tool. Persistence is whole-file JSON per sub-store and
// is best-effort: a missing or corrupt backing file degrades to an empty
// cache, never to a failure.
//
// Known limitation: the whole-file rewrite persistence is safe only for a
// single process. Concurrent writers in independent processes race on the
// backing file (last writer wins, no locking).
package cache
