package source

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache maps a resolved identity to the text fetched for it. It lives for
// one build and never evicts.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
	fetches atomic.Int64
}

// cacheEntry remembers failed fetches too, so an identity that failed is
// not fetched a second time within the build.
type cacheEntry struct {
	content string
	err     error
}

type loaded struct {
	cacheEntry
	hit bool
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the content stored for id. Identities whose fetch failed
// report false.
func (c *Cache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok || e.err != nil {
		return "", false
	}
	return e.content, true
}

// Put stores content for id. Re-storing an identity is harmless.
func (c *Cache) Put(id, content string) {
	c.mu.Lock()
	c.entries[id] = cacheEntry{content: content}
	c.mu.Unlock()
}

func (c *Cache) lookup(id string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Load returns the cached content for id, calling fetch at most once per
// identity. Callers racing on the same identity wait for the first fetch
// and share its result, including its error. Failures are remembered
// unless the fetch ran out of ctx. The returned bool reports
// whether the value came from an earlier or shared fetch.
func (c *Cache) Load(ctx context.Context, id string, fetch func(context.Context) (string, error)) (string, bool, error) {
	if e, ok := c.lookup(id); ok {
		return e.content, true, e.err
	}

	ch := c.group.DoChan(id, func() (any, error) {
		// A caller that lost the race to an already finished flight lands
		// here after the entry was stored.
		if e, ok := c.lookup(id); ok {
			return loaded{cacheEntry: e, hit: true}, nil
		}
		c.fetches.Add(1)
		content, err := fetch(ctx)
		e := cacheEntry{content: content, err: err}
		// A fetch cut short by its caller's context says nothing about
		// the identity; leave it for the next caller.
		if err == nil || ctx.Err() == nil {
			c.mu.Lock()
			c.entries[id] = e
			c.mu.Unlock()
		}
		return loaded{cacheEntry: e}, nil
	})

	select {
	case res := <-ch:
		l := res.Val.(loaded)
		return l.content, l.hit || res.Shared, l.err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// Fetches returns how many times a fetch function was invoked.
func (c *Cache) Fetches() int64 { return c.fetches.Load() }

// Len returns the number of stored identities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
