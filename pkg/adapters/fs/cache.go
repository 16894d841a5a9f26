package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fingerprintEntry caches the content hash of one store file, keyed by its
// modification time and size so edits invalidate it.
type fingerprintEntry struct {
	Hash         string    `json:"hash"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// fingerprintIndex is the persistent cache state.
type fingerprintIndex struct {
	Version int                          `json:"version"`
	Entries map[string]*fingerprintEntry `json:"entries"` // key is "<noteID>/<filename>"
}

// fingerprintCache spares rescans from rehashing unchanged content files.
// A nil cache is valid and caches nothing.
type fingerprintCache struct {
	path string

	mu    sync.RWMutex
	index fingerprintIndex
	dirty bool
}

func newFingerprintCache(path string) *fingerprintCache {
	if path == "" {
		return nil
	}
	return &fingerprintCache{
		path: path,
		index: fingerprintIndex{
			Version: 1,
			Entries: make(map[string]*fingerprintEntry),
		},
	}
}

// load reads the cache from disk. A missing or corrupted file is an empty
// cache, never an error: fingerprints are recomputed on miss.
func (c *fingerprintCache) load() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}

	var index fingerprintIndex
	if err := json.Unmarshal(data, &index); err != nil || index.Entries == nil {
		return
	}
	c.index = index
	c.dirty = false
}

// save persists the cache if it changed since loading.
func (c *fingerprintCache) save() error {
	if c == nil {
		return nil
	}

	c.mu.RLock()
	if !c.dirty {
		c.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(c.index, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write fingerprint cache: %w", err)
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// get returns the cached hash when mtime and size still match.
func (c *fingerprintCache) get(key string, mtime time.Time, size int64) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.index.Entries[key]
	if !ok || entry.Size != size || !entry.LastModified.Equal(mtime) {
		return "", false
	}
	return entry.Hash, true
}

// set records a freshly computed hash.
func (c *fingerprintCache) set(key string, mtime time.Time, size int64, hash string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index.Entries[key] = &fingerprintEntry{Hash: hash, Size: size, LastModified: mtime}
	c.dirty = true
}

// prune drops entries for files a complete scan no longer saw.
func (c *fingerprintCache) prune(keep map[string]bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.index.Entries {
		if !keep[key] {
			delete(c.index.Entries, key)
			c.dirty = true
		}
	}
}

// len reports the number of cached fingerprints.
func (c *fingerprintCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index.Entries)
}
