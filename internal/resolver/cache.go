package resolver

import (
	"sync"
)

// Cache remembers resolution outcomes per (company name, market preference).
// Both hits and definitive misses are cached; a nil entry means the lookup
// service had no match for the name. There is no eviction: the key space is
// bounded by the distinct company names in the ingested datasets. The cache is
// purely an optimization, never a correctness dependency.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*ResolvedSecurity
}

// NewCache creates an empty resolution cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*ResolvedSecurity),
	}
}

func cacheKey(companyName, marketHint string) string {
	if marketHint == "" {
		marketHint = "ANY"
	}
	return companyName + "_" + marketHint
}

// Get returns the cached outcome and whether one exists. The returned security
// is nil for a cached miss.
func (c *Cache) Get(companyName, marketHint string) (*ResolvedSecurity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sec, ok := c.entries[cacheKey(companyName, marketHint)]
	return sec, ok
}

// Put stores a resolution outcome; sec may be nil to record a miss.
func (c *Cache) Put(companyName, marketHint string, sec *ResolvedSecurity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(companyName, marketHint)] = sec
}

// Clear drops every cached outcome.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*ResolvedSecurity)
}

// Len reports the number of cached outcomes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
