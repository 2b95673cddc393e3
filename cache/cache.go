package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/harvest/backend"
	"github.com/use-agent/harvest/extract"
)

// Entry is one cached page: the raw fetch plus its extraction, so a
// hit skips both the network and the parse. The relevance score is
// NOT cached; it depends on the query and is recomputed per request.
type Entry struct {
	Raw         *backend.Result
	Extracted   *extract.Content
	Fingerprint uint64 // structural fingerprint of Raw.Content
}

// item wraps an Entry with its creation timestamp.
type item struct {
	entry     *Entry
	createdAt time.Time
}

// Cache is a simple in-memory cache for fetched pages.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*item
	ttl        time.Duration
	maxEntries int
	done       chan struct{}
	stopOnce   sync.Once
}

// New creates a Cache whose entries stay fresh for ttl. Stale entries
// are kept around for up to an hour (a background sweep prunes them)
// so Previous can still compare a refetch against the last known copy.
func New(ttl time.Duration, maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*item),
		ttl:        ttl,
		maxEntries: maxEntries,
		done:       make(chan struct{}),
	}

	go c.cleanupLoop()
	return c
}

// Stop terminates the background sweep. Safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Key generates a cache key from the URL and the fetch mode. Forced
// browser fetches are cached separately from chain fetches: the same
// URL can render differently with scripts executed.
func Key(url string, forceBrowser bool) string {
	mode := "auto"
	if forceBrowser {
		mode = "browser"
	}
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(mode))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached page if it exists and is still fresh.
// Returns the entry and whether it was a hit.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.RLock()
	it, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(it.createdAt) > c.ttl {
		return nil, false
	}
	return it.entry, true
}

// Previous retrieves the last stored page for the key regardless of
// freshness. Used after a refetch to detect that the page has not
// changed and its extraction can be reused.
func (c *Cache) Previous(key string) (*Entry, bool) {
	c.mu.RLock()
	it, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return it.entry, true
}

// Put stores a page in the cache, superseding any previous entry for
// the key. If the cache is at capacity, a random entry is evicted to
// make room.
func (c *Cache) Put(key string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict one random entry if at capacity (map iteration is random in Go).
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &item{
		entry:     e,
		createdAt: time.Now(),
	}
}

// cleanupLoop evicts entries older than 1 hour every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-1 * time.Hour)
			c.mu.Lock()
			for k, it := range c.store {
				if it.createdAt.Before(cutoff) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
