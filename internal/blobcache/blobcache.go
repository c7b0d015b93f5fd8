// Package blobcache memoizes the result of decompressing one backing byte
// buffer.
//
// A Cache is allocated per backing buffer and shared by every entry view of
// that buffer, so the association is by buffer identity rather than content.
// The cache holds no reference to the buffer itself; when the last entry
// referencing the buffer goes away, the cache and its memoized result are
// collected with it.
package blobcache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache is a single-flight memo for one buffer's decompressed content.
// The zero value is not usable; use New.
type Cache struct {
	group singleflight.Group

	mu   sync.RWMutex
	blob []byte
	done bool
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Get returns the memoized decompressed content, invoking fill to produce it
// on first use. Concurrent callers share a single in-flight fill; all of
// them observe the same result. A failed fill is not memoized, so a later
// call may retry.
func (c *Cache) Get(fill func() ([]byte, error)) ([]byte, error) {
	c.mu.RLock()
	if c.done {
		blob := c.blob
		c.mu.RUnlock()
		return blob, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("blob", func() (any, error) {
		// Double-check: an earlier flight may have completed between the
		// fast path and Do.
		c.mu.RLock()
		if c.done {
			blob := c.blob
			c.mu.RUnlock()
			return blob, nil
		}
		c.mu.RUnlock()

		blob, err := fill()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.blob = blob
		c.done = true
		c.mu.Unlock()
		return blob, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
