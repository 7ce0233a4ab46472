package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a namespace and a serialized request
func CacheKey(namespace string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write(payload)
	return "factlens:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by the settings.
// An empty dir yields a memory-only cache.
func New(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) Cache {
	if diskDir == "" {
		return NewMemoryCache(memoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(memoryTTL, diskDir, diskTTL)
}
