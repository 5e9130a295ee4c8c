package pricing

import (
	"sync"
	"time"
)

// candidateCache holds merged candidate lists per SKU with a time
// based expiry. Entries are treated as immutable after insertion, so
// readers share the cached slice without copying. Last writer wins on
// concurrent population of the same SKU.
type candidateCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	candidates []Candidate
	expires    time.Time
}

func newCandidateCache(ttl time.Duration) *candidateCache {
	return &candidateCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *candidateCache) get(sku string) ([]Candidate, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[sku]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	return entry.candidates, true
}

func (c *candidateCache) set(sku string, candidates []Candidate) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[sku] = cacheEntry{candidates: candidates, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
