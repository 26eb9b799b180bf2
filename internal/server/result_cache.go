package server

import (
	"sync"
	"time"
)

type cacheEntry struct {
	body    []byte
	created time.Time
}

// resultCache holds rewritten pages for the GET path. A zero TTL disables
// caching entirely.
type resultCache struct {
	mu   sync.RWMutex
	now  func() time.Time
	ttl  time.Duration
	data map[string]cacheEntry
}

func newResultCache(now func() time.Time, ttl time.Duration) *resultCache {
	if now == nil {
		now = time.Now
	}
	return &resultCache{
		now:  now,
		ttl:  ttl,
		data: make(map[string]cacheEntry),
	}
}

func (c *resultCache) Store(key string, body []byte) {
	if c.ttl <= 0 || len(body) == 0 {
		return
	}
	entry := cacheEntry{
		body:    append([]byte(nil), body...),
		created: c.now(),
	}
	c.mu.Lock()
	c.data[key] = entry
	c.mu.Unlock()
}

func (c *resultCache) Get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.created) > c.ttl {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return nil, false
	}
	return append([]byte(nil), entry.body...), true
}
