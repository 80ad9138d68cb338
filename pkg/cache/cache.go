// Package cache provides byte-oriented caching for expensive cutout and
// stackup computations: extent polygons, serialized layer collections and
// classification results. Backends: file (CLI usage), Redis (shared setups)
// and null (disabled).
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with optional TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The boolean reports whether the key was found
	// and still valid; a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl stores without expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value, ignoring absent keys.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
