package backend

import (
	"net/url"
	"sync"
	"time"
)

// failEntry counts consecutive failures for a domain, with a TTL.
type failEntry struct {
	failures  int
	expiresAt time.Time
}

// FailureMemory remembers domains a backend keeps failing on so the
// next fetch for that domain can fail fast instead of waiting out
// another timeout. Entries expire after the configured TTL and are
// pruned periodically.
type FailureMemory struct {
	mu    sync.Mutex
	store map[string]*failEntry
	limit int
	ttl   time.Duration
	done  chan struct{}
}

// NewFailureMemory creates a FailureMemory that trips after limit
// consecutive failures and forgets a domain ttl after its last failure.
func NewFailureMemory(limit int, ttl time.Duration) *FailureMemory {
	fm := &FailureMemory{
		store: make(map[string]*failEntry),
		limit: limit,
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	go fm.cleanupLoop()
	return fm
}

// Skip reports whether the domain has failed enough times recently
// that calling out again is pointless.
func (fm *FailureMemory) Skip(domain string) bool {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	entry, ok := fm.store[domain]
	if !ok {
		return false
	}
	if time.Now().After(entry.expiresAt) {
		delete(fm.store, domain)
		return false
	}
	return entry.failures >= fm.limit
}

// MarkFailure records one more failure for the domain and refreshes
// its expiry.
func (fm *FailureMemory) MarkFailure(domain string) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	now := time.Now()
	entry, ok := fm.store[domain]
	if !ok || now.After(entry.expiresAt) {
		fm.store[domain] = &failEntry{failures: 1, expiresAt: now.Add(fm.ttl)}
		return
	}
	entry.failures++
	entry.expiresAt = now.Add(fm.ttl)
}

// MarkSuccess clears the failure history for the domain.
func (fm *FailureMemory) MarkSuccess(domain string) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	delete(fm.store, domain)
}

// Stop terminates the background cleanup goroutine.
func (fm *FailureMemory) Stop() {
	close(fm.done)
}

// cleanupLoop periodically deletes expired entries.
func (fm *FailureMemory) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-fm.done:
			return
		case <-ticker.C:
			now := time.Now()
			fm.mu.Lock()
			for domain, entry := range fm.store {
				if now.After(entry.expiresAt) {
					delete(fm.store, domain)
				}
			}
			fm.mu.Unlock()
		}
	}
}

// domainOf extracts the hostname from a URL for failure bookkeeping.
// Falls back to the raw string when the URL does not parse.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}
