package scanner

import (
	"context"
	"path/filepath"
	"sync"
)

// Scanner is anything that can scan a directory tree.
type Scanner interface {
	Scan(ctx context.Context, root string) (*ScanResult, error)
}

// Cache memoizes scan results per root for the lifetime of the process.
// A fresh scan bypasses and then replaces the stored entry. Failed or
// cancelled scans are never stored.
type Cache struct {
	scanner Scanner

	mu      sync.Mutex
	entries map[string]*ScanResult
}

// NewCache wraps scanner with a result cache
func NewCache(scanner Scanner) *Cache {
	return &Cache{
		scanner: scanner,
		entries: make(map[string]*ScanResult),
	}
}

func cacheKey(root string) string {
	return filepath.Clean(root)
}

// Scan returns the memoized result for root unless fresh is set.
func (c *Cache) Scan(ctx context.Context, root string, fresh bool) (*ScanResult, bool, error) {
	key := cacheKey(root)

	if !fresh {
		c.mu.Lock()
		cached, ok := c.entries[key]
		c.mu.Unlock()
		if ok {
			return cached, true, nil
		}
	}

	result, err := c.scanner.Scan(ctx, root)
	if err != nil {
		return result, false, err
	}

	c.mu.Lock()
	c.entries[key] = result
	c.mu.Unlock()
	return result, false, nil
}

// Invalidate drops the entry for root
func (c *Cache) Invalidate(root string) {
	c.mu.Lock()
	delete(c.entries, cacheKey(root))
	c.mu.Unlock()
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*ScanResult)
	c.mu.Unlock()
}

// Len returns the number of cached roots
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
