package cache

import (
	"encoding/json"
	"time"
)

// Entry is an immutable cached tool result. Expiry is a pure function of
// wall-clock time; entries are never mutated after creation.
type Entry struct {
	Namespace string
	Query     string
	Payload   json.RawMessage
	CreatedAt time.Time
	TTL       time.Duration
}

// NewEntry creates an entry timestamped now.
func NewEntry(namespace, query string, payload json.RawMessage, ttl time.Duration, now time.Time) Entry {
	return Entry{
		Namespace: namespace,
		Query:     query,
		Payload:   payload,
		CreatedAt: now,
		TTL:       ttl,
	}
}

// ExpiresAt returns the instant after which the entry is unusable.
func (e Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

// entryJSON is the on-disk representation. TTL is stored as integer seconds
// so the file stays readable and stable across processes.
type entryJSON struct {
	Namespace  string          `json:"namespace"`
	Query      string          `json:"query"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  int64           `json:"created_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Namespace:  e.Namespace,
		Query:      e.Query,
		Payload:    e.Payload,
		CreatedAt:  e.CreatedAt.Unix(),
		TTLSeconds: int64(e.TTL / time.Second),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Namespace = raw.Namespace
	e.Query = raw.Query
	e.Payload = raw.Payload
	e.CreatedAt = time.Unix(raw.CreatedAt, 0)
	e.TTL = time.Duration(raw.TTLSeconds) * time.Second
	return nil
}
