package tour

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/example/route-crm/internal/recurrence"
)

const defaultCacheSize = 256

// Cache memoizes per-customer due assessments for a single reference day so
// that repeated tour builds for the same day skip the recurrence engine.
// Entries carry the day they were computed for; a lookup with a different day
// is a miss. Staleness after customer or list edits is handled by explicit
// invalidation from the write path, never detected automatically.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
}

type cacheEntry struct {
	day      time.Time
	pickup   recurrence.Assessment
	delivery recurrence.Assessment
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	entries, _ := lru.New[string, cacheEntry](size)
	return &Cache{entries: entries}
}

func (c *Cache) get(customerID string, day time.Time) (cacheEntry, bool) {
	if c == nil {
		return cacheEntry{}, false
	}
	entry, ok := c.entries.Get(customerID)
	if !ok || !entry.day.Equal(day) {
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *Cache) store(customerID string, entry cacheEntry) {
	if c == nil {
		return
	}
	c.entries.Add(customerID, entry)
}

// Invalidate drops the cached assessment for one customer. Callers invoke it
// after any write that can change the customer's schedule, including list
// membership and list term changes.
func (c *Cache) Invalidate(customerID string) {
	if c == nil {
		return
	}
	c.entries.Remove(customerID)
}

// InvalidateAll drops every cached assessment. Used after bulk changes such
// as list or rule edits whose member set is not cheaply known.
func (c *Cache) InvalidateAll() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
