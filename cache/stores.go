package cache

import (
	"context"
	"fmt"
	"path/filepath"
)

// Canonical sub-store file names. Search and browse results live in separate
// files to avoid cross-contamination and to bound file size; a third file
// holds short-lived auxiliary facts.
const (
	SearchCacheFile = "search_cache.json"
	BrowseCacheFile = "browse_cache.json"
	FactsCacheFile  = "facts_cache.json"
)

// Sub-store names accepted by StoreSet.Clear.
const (
	StoreSearch = "search"
	StoreBrowse = "browse"
	StoreFacts  = "facts"
	StoreAll    = "all"
)

// StoreSet bundles the canonical transient sub-stores under one cache
// directory. It is constructed explicitly and passed by reference to
// collaborators; there is no process-wide instance.
type StoreSet struct {
	Search *FileStore
	Browse *FileStore
	Facts  *FileStore

	dir string
}

// SetStats summarizes the sub-stores.
type SetStats struct {
	SearchEntries int    `json:"search_cache_size"`
	BrowseEntries int    `json:"browse_cache_size"`
	FactEntries   int    `json:"facts_cache_size"`
	Dir           string `json:"cache_directory"`
}

// OpenStoreSet opens the search, browse, and auxiliary facts sub-stores
// under dir. Options apply to every sub-store; per-store policies are fixed
// (24h search, 168h browse, 24h auxiliary facts).
func OpenStoreSet(dir string, opts ...Option) *StoreSet {
	open := func(file, name string, policy Policy) *FileStore {
		all := make([]Option, 0, len(opts)+1)
		all = append(all, opts...)
		all = append(all, WithPolicy(policy))
		return NewFileStore(filepath.Join(dir, file), name, all...)
	}

	return &StoreSet{
		Search: open(SearchCacheFile, StoreSearch, SearchPolicy()),
		Browse: open(BrowseCacheFile, StoreBrowse, BrowsePolicy()),
		Facts:  open(FactsCacheFile, StoreFacts, AuxFactsPolicy()),
		dir:    dir,
	}
}

// Dir returns the cache directory.
func (s *StoreSet) Dir() string { return s.dir }

// Stats returns entry counts for each sub-store.
func (s *StoreSet) Stats() SetStats {
	return SetStats{
		SearchEntries: s.Search.Len(),
		BrowseEntries: s.Browse.Len(),
		FactEntries:   s.Facts.Len(),
		Dir:           s.dir,
	}
}

// Close flushes every sub-store. Returns the first error encountered.
func (s *StoreSet) Close() error {
	var firstErr error
	for _, st := range []*FileStore{s.Search, s.Browse, s.Facts} {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Clear removes entries from the named sub-store, or from all of them.
func (s *StoreSet) Clear(ctx context.Context, which string) error {
	switch which {
	case StoreSearch:
		return s.Search.Clear(ctx)
	case StoreBrowse:
		return s.Browse.Clear(ctx)
	case StoreFacts:
		return s.Facts.Clear(ctx)
	case StoreAll:
		var firstErr error
		for _, st := range []*FileStore{s.Search, s.Browse, s.Facts} {
			if err := st.Clear(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	default:
		return fmt.Errorf("cache: unknown sub-store %q", which)
	}
}
