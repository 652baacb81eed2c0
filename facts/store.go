package facts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jonwraymond/toolcache/observe"
)

const (
	// DefaultTTL is the hard expiry horizon applied at record creation.
	DefaultTTL = 720 * time.Hour // 30 days

	// StalenessWindow is the soft threshold past which a record is still
	// returned but flagged as possibly outdated.
	StalenessWindow = 7 * 24 * time.Hour

	// lastUpdatedKey is the reserved sub-key stamping the last merge time
	// (unix seconds) inside the stored map.
	lastUpdatedKey = "_last_updated"

	storeName = "facts_db"
)

// Store is a durable fact store over a SQLite table. Exactly one live record
// exists per category; every mutation runs as a single transaction.
type Store struct {
	db         *sql.DB
	path       string
	defaultTTL time.Duration
	logger     observe.Logger
	metrics    observe.CacheMetrics
	now        func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDefaultTTL overrides the creation-time expiry horizon.
func WithDefaultTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.defaultTTL = ttl }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the sweep metrics recorder.
func WithMetrics(m observe.CacheMetrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// WithClock replaces the wall clock. Intended for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// Result is a fact lookup outcome. Stale is set when the record's age since
// its last update exceeds the staleness window; the facts are still returned
// in full so callers can distinguish "unavailable" from "possibly outdated".
type Result struct {
	Facts     map[string]any
	UpdatedAt time.Time
	ExpiresAt time.Time
	Stale     bool
}

// Stats summarizes the backing table.
type Stats struct {
	Count     int
	SizeBytes int64
	Oldest    time.Time
	Newest    time.Time
	Path      string
}

// Metadata describes a single record without unpacking its facts.
type Metadata struct {
	Category  string
	CreatedAt time.Time
	ExpiresAt time.Time
	Valid     bool
	Remaining time.Duration
}

// Open opens (creating if needed) the fact store at path.
func Open(path string, opts ...StoreOption) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("facts: create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("facts: open database: %w", err)
	}
	// One connection serializes writers within the process.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:         db,
		path:       path,
		defaultTTL: DefaultTTL,
		logger:     observe.NopLogger(),
		metrics:    observe.NopCacheMetrics(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithStore(storeName)

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("facts: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS facts (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_facts_expires_at ON facts(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the backing database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the backing database path.
func (s *Store) Path() string { return s.path }

// PutFacts merges facts into category using the default TTL for creation.
func (s *Store) PutFacts(ctx context.Context, category string, facts map[string]any) error {
	return s.PutFactsTTL(ctx, category, facts, 0)
}

// PutFactsTTL merges facts into category. If no live record exists one is
// created with expires_at = now + ttl (ttl <= 0 selects the default). If a
// live record exists the new keys are merged in, existing keys overwritten,
// untouched keys preserved, and the last-updated marker stamped; a merge
// never extends the record's expiry, so long-lived categories still roll off
// after the original TTL. The whole operation is one transaction.
func (s *Store) PutFactsTTL(ctx context.Context, category string, facts map[string]any, ttl time.Duration) error {
	if category == "" {
		return ErrEmptyCategory
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("facts: begin put: %w", err)
	}
	defer tx.Rollback()

	// An expired record must never be merged into: purge it first so the
	// merge starts from "no record" or "a still-valid record".
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM facts WHERE key = ? AND expires_at <= ?`,
		category, now.Unix()); err != nil {
		return fmt.Errorf("facts: purge expired record: %w", err)
	}

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM facts WHERE key = ?`, category).Scan(&existing)

	switch {
	case err == sql.ErrNoRows:
		merged := make(map[string]any, len(facts)+1)
		for k, v := range facts {
			merged[k] = v
		}
		merged[lastUpdatedKey] = now.Unix()

		value, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("facts: encode facts: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO facts (key, value, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			category, string(value), now.Unix(), now.Add(ttl).Unix()); err != nil {
			return fmt.Errorf("facts: insert record: %w", err)
		}

	case err != nil:
		return fmt.Errorf("facts: read existing record: %w", err)

	default:
		merged := make(map[string]any)
		if err := json.Unmarshal([]byte(existing), &merged); err != nil {
			// Corrupt stored value: drop it and start over from the new facts.
			s.logger.Warn(ctx, "dropping corrupt fact record",
				observe.Field{Key: "category", Value: category},
				observe.Field{Key: "error", Value: err.Error()})
			merged = make(map[string]any)
		}
		for k, v := range facts {
			merged[k] = v
		}
		merged[lastUpdatedKey] = now.Unix()

		value, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("facts: encode facts: %w", err)
		}
		// expires_at intentionally untouched: only creation sets expiry.
		if _, err := tx.ExecContext(ctx,
			`UPDATE facts SET value = ? WHERE key = ?`,
			string(value), category); err != nil {
			return fmt.Errorf("facts: merge record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("facts: commit put: %w", err)
	}

	s.logger.Debug(ctx, "stored facts",
		observe.Field{Key: "category", Value: category},
		observe.Field{Key: "keys", Value: len(facts)})
	return nil
}

// GetFacts sweeps all expired records, then returns the live record for
// category, or nil when absent. Stale records are returned in full with
// Result.Stale set and a warning logged.
func (s *Store) GetFacts(ctx context.Context, category string) (*Result, error) {
	if category == "" {
		return nil, ErrEmptyCategory
	}
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	now := s.now()

	var (
		value     string
		createdAt int64
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, created_at, expires_at FROM facts WHERE key = ? AND expires_at > ?`,
		category, now.Unix()).Scan(&value, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("facts: read record: %w", err)
	}

	m := make(map[string]any)
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		return nil, fmt.Errorf("facts: decode record: %w", err)
	}

	updatedAt := time.Unix(createdAt, 0)
	if ts, ok := asUnixTime(m[lastUpdatedKey]); ok {
		updatedAt = ts
	}

	res := &Result{
		Facts:     m,
		UpdatedAt: updatedAt,
		ExpiresAt: time.Unix(expiresAt, 0),
		Stale:     now.Sub(updatedAt) > StalenessWindow,
	}
	if res.Stale {
		s.logger.Warn(ctx, "facts are stale",
			observe.Field{Key: "category", Value: category},
			observe.Field{Key: "age_days", Value: now.Sub(updatedAt).Hours() / 24})
	}
	return res, nil
}

// ListCategories sweeps expired records, then returns live category keys
// matching pattern in key order. Pattern matching is SQL LIKE style
// ("%" and "_" wildcards); an empty pattern matches everything.
func (s *Store) ListCategories(ctx context.Context, pattern string) ([]string, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "%"
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM facts WHERE key LIKE ? AND expires_at > ? ORDER BY key`,
		pattern, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("facts: list categories: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("facts: scan category: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Delete removes the record for category. Returns whether a record existed.
func (s *Store) Delete(ctx context.Context, category string) (bool, error) {
	if category == "" {
		return false, ErrEmptyCategory
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE key = ?`, category)
	if err != nil {
		return false, fmt.Errorf("facts: delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		s.logger.Info(ctx, "deleted facts",
			observe.Field{Key: "category", Value: category})
	}
	return n > 0, nil
}

// ClearAll removes every record. Destructive; logged prominently.
func (s *Store) ClearAll(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts`).Scan(&count); err != nil {
		return false, fmt.Errorf("facts: count records: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM facts`); err != nil {
		return false, fmt.Errorf("facts: clear records: %w", err)
	}
	s.logger.Warn(ctx, "cleared all facts",
		observe.Field{Key: "removed", Value: count})
	return true, nil
}

// Sweep deletes every expired record. Safe to run repeatedly: deleting
// already-gone rows is a no-op.
func (s *Store) Sweep(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM facts WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return fmt.Errorf("facts: sweep: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.metrics.RecordSweep(ctx, storeName, n)
		s.logger.Debug(ctx, "swept expired facts",
			observe.Field{Key: "removed", Value: n})
	}
	return nil
}

// Stats sweeps, then reports live record count, backing file size, and the
// creation times of the oldest and newest live records.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	now := s.now().Unix()

	st := &Stats{Path: s.path}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM facts WHERE expires_at > ?`, now).Scan(&st.Count); err != nil {
		return nil, fmt.Errorf("facts: count records: %w", err)
	}

	if st.Count > 0 {
		var oldest, newest int64
		if err := s.db.QueryRowContext(ctx,
			`SELECT MIN(created_at), MAX(created_at) FROM facts WHERE expires_at > ?`,
			now).Scan(&oldest, &newest); err != nil {
			return nil, fmt.Errorf("facts: record age range: %w", err)
		}
		st.Oldest = time.Unix(oldest, 0)
		st.Newest = time.Unix(newest, 0)
	}

	if fi, err := os.Stat(s.path); err == nil {
		st.SizeBytes = fi.Size()
	}
	return st, nil
}

// Metadata returns record metadata for category without decoding its facts,
// or nil when no record exists (expired records are still reported, with
// Valid false).
func (s *Store) Metadata(ctx context.Context, category string) (*Metadata, error) {
	if category == "" {
		return nil, ErrEmptyCategory
	}
	var createdAt, expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, expires_at FROM facts WHERE key = ?`,
		category).Scan(&createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("facts: read metadata: %w", err)
	}

	now := s.now()
	md := &Metadata{
		Category:  category,
		CreatedAt: time.Unix(createdAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
	}
	md.Valid = md.ExpiresAt.After(now)
	if md.Valid {
		md.Remaining = md.ExpiresAt.Sub(now)
	}
	return md, nil
}

// Vacuum reclaims space in the backing database.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("facts: vacuum: %w", err)
	}
	s.logger.Info(ctx, "vacuumed fact database")
	return nil
}

// asUnixTime coerces a stored last-updated value to a time. JSON decoding
// yields float64; merged Go maps may carry int64 or time.Time.
func asUnixTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0), true
	case int64:
		return time.Unix(t, 0), true
	case int:
		return time.Unix(int64(t), 0), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return time.Unix(n, 0), true
		}
	}
	return time.Time{}, false
}
