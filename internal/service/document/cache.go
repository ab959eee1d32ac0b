// Package document provides the bounded TTL cache bridging a search call
// to the fetch that follows it.
package document

import (
	"sync"
	"time"

	model "github.com/quiverlab/toolgate/internal/model/document"
)

// evictionHeadroom leaves spare slots beyond the cap after a size purge so
// consecutive inserts do not each trigger a sweep.
const evictionHeadroom = 10

// Cache maps opaque result ids to documents. Eviction is FIFO by insertion
// order plus a TTL sweep, both run opportunistically before inserts; there
// is no background timer.
type Cache struct {
	mu      sync.Mutex
	entries map[string]model.Document
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewCache builds an empty cache bounded to maxSize entries, each living at
// most ttl past its metadata timestamp.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]model.Document),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put sweeps expired and overflow entries, then inserts doc under id.
func (c *Cache) Put(id string, doc model.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepExpired()
	if len(c.entries) >= c.maxSize {
		c.evictOldest(c.maxSize - evictionHeadroom)
	}

	if _, exists := c.entries[id]; !exists {
		c.order = append(c.order, id)
	}
	c.entries[id] = doc
}

// Get returns the document stored under id. A miss is a normal outcome:
// ids are only valid after a search within the TTL window.
func (c *Cache) Get(id string) (model.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.entries[id]
	return doc, ok
}

// Size reports the current entry count.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepExpired removes entries whose timestamp age exceeds the TTL.
func (c *Cache) sweepExpired() {
	now := c.now()
	kept := c.order[:0]
	for _, id := range c.order {
		doc, ok := c.entries[id]
		if !ok {
			continue
		}
		if now.Sub(doc.Metadata.Timestamp) > c.ttl {
			delete(c.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
}

// evictOldest drops earliest-inserted entries until at most target remain.
func (c *Cache) evictOldest(target int) {
	if target < 0 {
		target = 0
	}
	for len(c.entries) > target && len(c.order) > 0 {
		id := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, id)
	}
}
