package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Keyer derives cache keys from a namespace and a raw query.
//
// Contract:
// - Determinism: identical (namespace, query) pairs must produce identical
//   keys, including across process restarts.
// - Totality: any string input, including empty, produces a valid key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives a fixed-width cache key from namespace and query.
	Key(namespace, query string) string
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives a deterministic 64-character hex key from
// SHA-256(namespace + ":" + query). The namespace prefix keeps identical
// queries in different namespaces from colliding.
func (k *DefaultKeyer) Key(namespace, query string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte(":"))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// Canonicalize produces a deterministic JSON representation of a value.
// Maps are sorted by key so equal inputs always serialize identically.
// Used by the wrapper's key extraction when the tool input is not a string.
func Canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := Canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := Canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
