package marketdata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache is a file-backed msgpack cache for fetched market data. Entries
// expire by file modification time.
type Cache struct {
	dir string
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates the cache directory if needed. A non-positive ttl
// disables expiry.
func NewCache(dir string, ttl time.Duration, log zerolog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		dir: dir,
		ttl: ttl,
		log: log.With().Str("component", "cache").Logger(),
	}, nil
}

func historyCacheKey(symbol, rng, interval string) string {
	return fmt.Sprintf("history:%s:%s:%s", symbol, rng, interval)
}

func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:16])+".msgpack")
}

// Get loads a cached value into out. Returns false on miss, expiry or
// decode failure.
func (c *Cache) Get(key string, out interface{}) bool {
	path := c.path(key)

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		_ = os.Remove(path)
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	if err := msgpack.Unmarshal(data, out); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to decode cache entry, discarding")
		_ = os.Remove(path)
		return false
	}

	return true
}

// Put stores a value under the key. Failures are logged, not returned:
// the cache is best-effort.
func (c *Cache) Put(key string, value interface{}) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}

	if err := os.WriteFile(c.path(key), data, 0644); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to write cache entry")
	}
}

// Clear removes every entry from the cache directory.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".msgpack" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove cache entry %s: %w", entry.Name(), err)
		}
	}
	return nil
}
