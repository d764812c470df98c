// Package cache provides a layered (memory + disk) cache for oracle
// responses. Keys incorporate the registry version, so a taxonomy revision
// invalidates everything cached under the old version.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a cache key from its parts (registry version, prompt, ...)
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "plangrade:v1:" + hex.EncodeToString(hash[:])
}
