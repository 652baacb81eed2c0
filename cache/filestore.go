package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonwraymond/toolcache/observe"
)

// FileStore is a transient result store: an in-memory map mirrored to a
// single JSON file. Every Put rewrites the whole file synchronously, so the
// on-disk document is always a complete snapshot after a write. Entry counts
// stay at agent-session scale, which keeps the O(size) rewrite acceptable.
type FileStore struct {
	name    string
	path    string
	keyer   Keyer
	policy  Policy
	logger  observe.Logger
	metrics observe.CacheMetrics
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithKeyer sets the key deriver.
func WithKeyer(k Keyer) Option {
	return func(s *FileStore) { s.keyer = k }
}

// WithPolicy sets the TTL policy.
func WithPolicy(p Policy) Option {
	return func(s *FileStore) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(s *FileStore) { s.logger = l }
}

// WithMetrics sets the lookup/write metrics recorder.
func WithMetrics(m observe.CacheMetrics) Option {
	return func(s *FileStore) { s.metrics = m }
}

// NewFileStore opens a file-backed store named name at path. The backing
// file is loaded if present; a missing, empty, or corrupt file starts the
// store empty. Construction never fails: prior cache contents are
// best-effort, never required for correctness.
func NewFileStore(path, name string, opts ...Option) *FileStore {
	s := &FileStore{
		name:    name,
		path:    path,
		keyer:   NewDefaultKeyer(),
		policy:  Policy{DefaultTTL: 24 * time.Hour},
		logger:  observe.NopLogger(),
		metrics: observe.NopCacheMetrics(),
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithStore(name)
	s.load()
	return s
}

// Name returns the sub-store name.
func (s *FileStore) Name() string { return s.name }

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// load reads the backing file into memory. Corrupt records are skipped
// individually so one bad entry cannot discard the rest.
func (s *FileStore) load() {
	ctx := context.Background()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn(ctx, "failed to read cache file, starting empty",
				observe.Field{Key: "path", Value: s.path},
				observe.Field{Key: "error", Value: err.Error()})
		}
		return
	}
	if len(data) == 0 {
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn(ctx, "corrupt cache file, starting empty",
			observe.Field{Key: "path", Value: s.path},
			observe.Field{Key: "error", Value: err.Error()})
		return
	}

	for key, rec := range raw {
		var e Entry
		if err := json.Unmarshal(rec, &e); err != nil {
			s.logger.Warn(ctx, "skipping corrupt cache entry",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()})
			continue
		}
		s.entries[key] = e
	}

	s.logger.Debug(ctx, "loaded cache file",
		observe.Field{Key: "path", Value: s.path},
		observe.Field{Key: "entries", Value: len(s.entries)})
}

// Get retrieves a cached payload. An expired entry is evicted on read and
// reported as a miss.
func (s *FileStore) Get(ctx context.Context, namespace, query string) (json.RawMessage, bool) {
	key := s.keyer.Key(namespace, query)

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.metrics.RecordLookup(ctx, s.name, namespace, false)
		return nil, false
	}

	if entry.Expired(s.now()) {
		// Eager eviction on read. The file is not rewritten here; the next
		// Put snapshots the map without the evicted entry.
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()

		s.metrics.RecordLookup(ctx, s.name, namespace, false)
		s.logger.Debug(ctx, "cache entry expired",
			observe.Field{Key: "namespace", Value: namespace})
		return nil, false
	}

	s.metrics.RecordLookup(ctx, s.name, namespace, true)
	s.logger.Debug(ctx, "cache hit",
		observe.Field{Key: "namespace", Value: namespace})
	return entry.Payload, true
}

// Put stores a payload, overwriting any existing entry for the same
// (namespace, query) pair, and persists the whole map synchronously. A
// persistence failure is reported as an error but the entry keeps being
// served from memory.
func (s *FileStore) Put(ctx context.Context, namespace, query string, payload json.RawMessage, ttl time.Duration) error {
	key := s.keyer.Key(namespace, query)
	entry := NewEntry(namespace, query, payload, s.policy.EffectiveTTL(ttl), s.now())

	s.mu.Lock()
	s.entries[key] = entry
	err := s.persistLocked()
	s.mu.Unlock()

	s.metrics.RecordWrite(ctx, s.name, namespace, err)
	if err != nil {
		s.logger.Warn(ctx, "failed to persist cache file",
			observe.Field{Key: "path", Value: s.path},
			observe.Field{Key: "error", Value: err.Error()})
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Delete removes a cached payload. Idempotent - no error on miss.
func (s *FileStore) Delete(ctx context.Context, namespace, query string) error {
	key := s.keyer.Key(namespace, query)

	s.mu.Lock()
	_, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.entries, key)
	err := s.persistLocked()
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Clear removes all entries and the backing file.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]Entry)
	err := os.Remove(s.path)
	s.mu.Unlock()

	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	s.logger.Info(ctx, "cleared cache store")
	return nil
}

// Close flushes the current snapshot to disk. Puts persist synchronously,
// so the flush only matters when reads evicted expired entries since the
// last write.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Len returns the number of in-memory entries, expired or not.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// persistLocked serializes the full map to the backing file. Callers must
// hold mu. The write goes through a temp file and rename so a crash
// mid-write cannot leave a torn snapshot.
func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Ensure FileStore implements ResultStore
var _ ResultStore = (*FileStore)(nil)
