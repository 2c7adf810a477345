package snippet

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/csheth/magnifier/internal/geom"
)

// Key identifies rendered content: the same region of the same page at the
// same scale and tier always hashes to the same key.
type Key string

// KeyFor hashes the inputs that determine a snippet's pixels.
func KeyFor(sourcePage int, source geom.Rect, magnification float64, tier Tier) Key {
	raw := fmt.Sprintf("%d|%.4f|%.4f|%.4f|%.4f|%.4f|%s",
		sourcePage, source.X, source.Y, source.Width, source.Height, magnification, tier)
	sum := sha1.Sum([]byte(raw))
	return Key(hex.EncodeToString(sum[:]))
}

// Cache holds finished snippets and collapses concurrent renders of the same
// key into one. Entries are never mutated once stored.
type Cache struct {
	mu       sync.Mutex
	entries  map[Key]*Snippet
	inflight map[Key]chan struct{}
	gen      uint64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:  map[Key]*Snippet{},
		inflight: map[Key]chan struct{}{},
	}
}

// Get returns a finished snippet.
func (c *Cache) Get(k Key) (*Snippet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[k]
	return s, ok
}

// Pending reports whether a render for k is running.
func (c *Cache) Pending(k Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[k]
	return ok
}

// Len returns the number of stored snippets.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Do returns the snippet for k, calling render only when no finished entry
// exists and no other caller is already rendering it. Callers that find a
// render in flight wait for it.
func (c *Cache) Do(ctx context.Context, k Key, render func(context.Context) (*Snippet, error)) (*Snippet, error) {
	for {
		c.mu.Lock()
		if s, ok := c.entries[k]; ok {
			c.mu.Unlock()
			return s, nil
		}
		if wait, ok := c.inflight[k]; ok {
			c.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		c.inflight[k] = done
		gen := c.gen
		c.mu.Unlock()

		s, err := render(ctx)

		c.mu.Lock()
		if c.inflight[k] == done {
			delete(c.inflight, k)
		}
		if err == nil && gen == c.gen {
			c.entries[k] = s
		}
		close(done)
		c.mu.Unlock()
		return s, err
	}
}

// Retain drops every entry whose key is not in live and returns how many
// were removed.
func (c *Cache) Retain(live map[Key]bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if !live[k] {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Reset empties the cache. Renders already running finish but are not stored.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[Key]*Snippet{}
	c.inflight = map[Key]chan struct{}{}
	c.gen++
}
