// Package cache maps original line text to its translation so identical lines
// are translated (and billed) once.
package cache

import (
	"context"
	"maps"
	"sync"
)

// Cache is safe for concurrent use. Duplicate keys are last-writer-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns the translation stored for original.
func (c *Cache) Get(original string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[original]
	return t, ok
}

// Put stores translation for original.
func (c *Cache) Put(original, translation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[original] = translation
}

// Len returns the number of cached lines.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Seed adds every pair of entries.
func (c *Cache) Seed(entries map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.entries, entries)
}

// Merge copies every entry of other into c.
func (c *Cache) Merge(other *Cache) {
	if other == nil || other == c {
		return
	}
	c.Seed(other.Snapshot())
}

// Snapshot returns a copy of all entries.
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.entries)
}

// Store persists cache entries between runs.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, entries map[string]string) error
}

// LoadFrom seeds c from store.
func (c *Cache) LoadFrom(ctx context.Context, store Store) error {
	entries, err := store.Load(ctx)
	if err != nil {
		return err
	}
	c.Seed(entries)
	return nil
}

// SaveTo writes every entry of c to store.
func (c *Cache) SaveTo(ctx context.Context, store Store) error {
	return store.Save(ctx, c.Snapshot())
}
