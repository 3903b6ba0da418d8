package search

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/c360studio/semcoach/recommend"
)

// resultCache holds one source's results per query. Entries older than ttl
// are dropped on read; a zero ttl never expires.
type resultCache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	results  []recommend.Candidate
	storedAt time.Time
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil
	}
	return &resultCache{entries: entries, ttl: ttl, now: time.Now}
}

func (c *resultCache) get(query string) ([]recommend.Candidate, bool) {
	e, ok := c.entries.Get(query)
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl {
		c.entries.Remove(query)
		return nil, false
	}
	return e.results, true
}

func (c *resultCache) add(query string, results []recommend.Candidate) {
	c.entries.Add(query, cacheEntry{results: results, storedAt: c.now()})
}
