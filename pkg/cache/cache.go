// Package cache provides the byte caches used by fourbar.
//
// Three implementations share the [Cache] interface:
//   - [FileCache]: entries as JSON files under a directory (CLI renders)
//   - [RedisCache]: a Redis server shared by every server process
//   - [NullCache]: never stores anything (caching disabled, tests)
//
// Keys are built by a [Keyer] so that every component agrees on them:
//
//	keyer := cache.NewDefaultKeyer()
//	c.Set(ctx, keyer.LayoutKey("smash"), data, cache.TTLLayout)
//
// Layout entries are invalidated on every write; artifact entries are
// addressed by the hash of the layout they were rendered from and only
// expire.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key and whether it was found. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl stores without expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Default TTLs per entry kind.
const (
	TTLLayout   = 10 * time.Minute
	TTLWidgets  = 10 * time.Minute
	TTLArtifact = 24 * time.Hour

	// TTLGeneration outlives every entry a generation token tags.
	TTLGeneration = 2 * TTLLayout
)
