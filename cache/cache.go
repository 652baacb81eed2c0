package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilTool    = errors.New("cache: tool is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrPersist    = errors.New("cache: failed to persist store")
)

// ResultStore is the interface the cache-aside wrapper consults.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns (nil, false) on miss. Put reports
//   persistence failure without losing the in-memory write.
type ResultStore interface {
	// Get retrieves a cached payload. Returns (nil, false) on miss or expiry.
	Get(ctx context.Context, namespace, query string) (json.RawMessage, bool)

	// Put stores a payload. Pass DefaultTTL to use the store's policy default.
	Put(ctx context.Context, namespace, query string, payload json.RawMessage, ttl time.Duration) error

	// Delete removes a cached payload. Idempotent - no error on miss.
	Delete(ctx context.Context, namespace, query string) error
}

// ValidateKey checks if a derived key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
