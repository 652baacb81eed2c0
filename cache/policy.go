package cache

import "time"

// DefaultTTL is the sentinel passed to Put to request the store's policy
// default. A TTL of zero or greater is taken literally: zero produces an
// entry that is already expired on the next read.
const DefaultTTL time.Duration = -1

// Policy configures TTL behavior for a result store.
type Policy struct {
	// DefaultTTL is the TTL applied when a caller passes the DefaultTTL
	// sentinel.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// SearchPolicy returns the policy for search-style tool results.
// Search rankings churn quickly, so the default horizon is short.
func SearchPolicy() Policy {
	return Policy{DefaultTTL: 24 * time.Hour}
}

// BrowsePolicy returns the policy for browsed-page content.
// Page content changes less often than search rankings.
func BrowsePolicy() Policy {
	return Policy{DefaultTTL: 168 * time.Hour}
}

// AuxFactsPolicy returns the policy for the short-lived auxiliary facts
// sub-store.
func AuxFactsPolicy() Policy {
	return Policy{DefaultTTL: 24 * time.Hour}
}

// EffectiveTTL resolves a caller-supplied TTL against the policy.
// The DefaultTTL sentinel (or any negative value) selects the policy
// default; non-negative values are taken literally. The result is clamped
// to MaxTTL when one is set.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl < 0 {
		ttl = p.DefaultTTL
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
