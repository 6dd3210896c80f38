// Package resultcache memoizes fetched result pages for one search mode.
//
// Entries are immutable once stored and are never evicted one by one: when an
// upstream dimension changes, the owner clears the whole cache. There is no TTL
// and no size bound, so a very long session grows the cache without limit.
package resultcache

import (
	"slices"
	"sync"

	"github.com/garyellow/lnmu-portal/internal/student"
)

// Entry is one cached result page.
type Entry struct {
	Items      []student.Summary
	TotalItems int
	TotalPages int
}

func (e Entry) clone() Entry {
	e.Items = slices.Clone(e.Items)
	if e.Items == nil {
		e.Items = []student.Summary{}
	}
	return e
}

// Recorder receives hit/miss notifications, labeled by mode.
type Recorder interface {
	RecordCacheHit(module string)
	RecordCacheMiss(module string)
}

// Cache is a keyed store of result pages. K is the full cache key of the mode
// (query dimensions plus page).
type Cache[K comparable] struct {
	mode     string
	mu       sync.RWMutex
	entries  map[K]Entry
	recorder Recorder
}

// New creates an empty cache for the given mode ("search" or "guided").
func New[K comparable](mode string) *Cache[K] {
	return &Cache[K]{
		mode:    mode,
		entries: make(map[K]Entry),
	}
}

// SetRecorder attaches a metrics recorder. Nil disables recording.
func (c *Cache[K]) SetRecorder(r Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// Mode returns the mode label the cache was created with.
func (c *Cache[K]) Mode() string {
	return c.mode
}

// Get returns a copy of the entry stored under key.
func (c *Cache[K]) Get(key K) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	recorder := c.recorder
	c.mu.RUnlock()

	if recorder != nil {
		if ok {
			recorder.RecordCacheHit(c.mode)
		} else {
			recorder.RecordCacheMiss(c.mode)
		}
	}
	if !ok {
		return Entry{}, false
	}
	return entry.clone(), true
}

// Put stores entry under key. An existing entry is never replaced; Put
// reports whether the entry was stored.
func (c *Cache[K]) Put(key K, entry Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return false
	}
	c.entries[key] = entry.clone()
	return true
}

// Clear drops every entry.
func (c *Cache[K]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of cached pages.
func (c *Cache[K]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
