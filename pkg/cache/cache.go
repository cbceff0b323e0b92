// Package cache provides pluggable byte-level caching for depscout.
//
// Two things ride on it: the registry HTTP response cache (one scan should
// never fetch the same package twice) and the persistent verdict cache that
// survives across runs. Backends:
//   - file: default for CLI usage, entries under the user cache directory
//   - redis: shared cache for long-running or multi-host deployments
//   - null: caching disabled (tests, --refresh)
//
// Cache instances are explicit process-scoped state: create one at run start,
// Close it at run end. Nothing in this package holds package-level state, so
// tests and concurrent runs can use independent instances.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the interface implemented by all cache backends.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value by key. The second return value reports whether
	// the key was present and fresh; expired entries are a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources (connections, file handles).
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string. Used to derive filesystem-safe
// cache keys from arbitrary package names.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Key builds a namespaced cache key, e.g. Key("verdict", "npm", "left-pad").
// Parts are joined with ':' without hashing so keys stay human-readable in
// Redis; file backends hash the final key themselves.
func Key(parts ...string) string {
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}
