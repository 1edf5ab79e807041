// Package cache stores sampling results keyed by everything that determines
// them, so repeated runs of the same analysis skip the sampler entirely.
// Draw files are bulky, so payloads are zstd-compressed JSON.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/postcheck/postcheck/internal/draws"
)

// Cache provides caching of DrawSets for sampling runs.
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory. An empty
// directory disables the cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key generates a unique cache key for one sampling run. The key covers the
// model reference, the model binary's content when it is a readable file,
// the data block, and the sampling configuration. Anything that changes the
// draws changes the key.
func Key(model string, data map[string]any, seed int64, chains, iterations, warmup int) (string, error) {
	h := sha256.New()

	if err := writeString(h, model); err != nil {
		return "", err
	}
	// Hash the binary itself so recompiled models miss the cache.
	if raw, err := os.ReadFile(model); err == nil {
		if _, err := h.Write(raw); err != nil {
			return "", err
		}
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshaling data block: %w", err)
	}
	if _, err := h.Write(dataJSON); err != nil {
		return "", err
	}

	for _, v := range []int64{seed, int64(chains), int64(iterations), int64(warmup)} {
		if err := writeInt64(h, v); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached DrawSet if it exists.
func (c *Cache) Get(key string) (*draws.DrawSet, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	compressed, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		// Cache miss
		return nil, false
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, false
	}
	defer decoder.Close()

	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		// Corrupt cache entry, treat as miss
		return nil, false
	}

	var ds draws.DrawSet
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, false
	}
	return &ds, true
}

// Put stores a DrawSet in the cache.
func (c *Cache) Put(key string, ds *draws.DrawSet) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("marshaling draws: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("creating compressor: %w", err)
	}
	compressed := encoder.EncodeAll(data, nil)
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("closing compressor: %w", err)
	}

	if err := os.WriteFile(c.cachePath(key), compressed, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Clear removes all cached results.
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: refuse to delete a directory holding anything that is
	// not a cache entry.
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".zst" {
			return fmt.Errorf("cache directory contains non-cache entries - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json.zst")
}

func writeString(h hash.Hash, s string) error {
	if err := writeInt64(h, int64(len(s))); err != nil {
		return err
	}
	_, err := h.Write([]byte(s))
	return err
}

func writeInt64(h hash.Hash, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := h.Write(buf[:])
	return err
}
