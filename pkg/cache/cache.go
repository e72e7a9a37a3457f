// Package cache provides byte-level response caches for the card database
// client.
//
// The card client keeps decoded cards in memory for the life of the process.
// A [Cache] is the optional second level underneath: it stores raw API
// responses so that a new process can answer repeat lookups without a
// network round trip. Three backends exist:
//   - [FileCache]: one JSON file per entry under ~/.cache/sheetslicer/
//   - [RedisCache]: shared cache for several processes or machines
//   - [NullCache]: caching disabled
//
// Keys are namespaced with [Key] so that several clients can share one
// backend without collisions.
package cache

import (
	"context"
	"strings"
	"time"
)

// Default time-to-live values for cached responses.
const (
	// TTLCard applies to single-card responses. Card text is errata'd rarely.
	TTLCard = 7 * 24 * time.Hour

	// TTLSearch applies to search result pages, which change when packs release.
	TTLSearch = 24 * time.Hour
)

// Cache stores opaque byte payloads under string keys.
//
// Implementations must be safe for concurrent use. A TTL of 0 means the
// entry never expires.
type Cache interface {
	// Get returns the payload for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key for ttl.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Key builds a namespaced cache key, e.g. Key("arkhamdb", "card", "01001")
// returns "arkhamdb:card:01001".
func Key(namespace string, parts ...string) string {
	return strings.Join(append([]string{namespace}, parts...), ":")
}
