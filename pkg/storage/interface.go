package storage

import (
	"context"

	"github.com/steeltoeoss/parsemd/pkg/models"
)

// RenderCache stores rendered HTML keyed by the SHA-256 of the markdown source
type RenderCache interface {
	// Get returns the cached entry for a content hash.
	// A missing entry is reported with found=false and a nil error
	Get(contentHash string) (entry *models.RenderCacheEntry, found bool, err error)

	// Put stores or replaces the entry for a content hash
	Put(contentHash string, entry *models.RenderCacheEntry) error
}

// CacheAdmin handles lifecycle and maintenance of the cache
type CacheAdmin interface {
	// Count returns the number of cached entries
	Count() (int, error)

	// Prune removes every entry whose hash is not in live and returns the number removed
	Prune(ctx context.Context, live map[string]struct{}) (int, error)

	// RunGC reclaims value log space left behind by pruned entries
	RunGC()

	// Close cleanly closes the database connection
	Close() error
}

// RenderStore combines the cache and admin interfaces for the publisher
type RenderStore interface {
	RenderCache
	CacheAdmin
}
