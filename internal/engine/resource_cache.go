package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Destroyable is an object owned by a rendering context that must be torn
// down exactly once when the context is destroyed.
type Destroyable interface {
	Destroy()
}

// RenderContext is an expensive, shareable rendering context (a loaded scene
// plus its animated models). The cache exclusively owns it; acquirers hold
// only a handle.
type RenderContext interface {
	Destroyable
	// Advance steps the context's animations by dt. Driven by the cache's
	// shared clock while at least one context is alive.
	Advance(dt time.Duration)
}

// ContextLoader builds the context and its owned children for a key. Called
// at most once per live key.
type ContextLoader func(ctx context.Context, key string) (RenderContext, []Destroyable, error)

// AcquireOptions controls per-key cache behaviour.
type AcquireOptions struct {
	// Persist keeps the entry cached after the last holder releases it,
	// until Purge is called. Without it the context is destroyed when the
	// refcount reaches zero.
	Persist bool
}

// ResourceHandle is what an acquirer holds: the key plus a private holder
// identity. It carries no ownership of the underlying context.
type ResourceHandle struct {
	Key string
	// Degraded is set when the loader failed. The handle is still usable
	// (Attach/Release work) so callers can render a neutral fallback
	// instead of crashing.
	Degraded bool

	holder string
}

type resourceEntry struct {
	key      string
	persist  bool
	degraded bool

	rc       RenderContext
	children []Destroyable

	holders    map[string]struct{}
	attachedTo string

	ready   chan struct{} // closed when initialization finished
	destroy sync.Once
}

// ResourceCache is a registry of refcounted rendering contexts keyed by a
// caller-supplied identity string. It is constructed explicitly and injected
// where needed; there is no package-level instance.
type ResourceCache struct {
	loader    ContextLoader
	tickEvery time.Duration

	mu      sync.Mutex
	entries map[string]*resourceEntry
	clock   chan struct{} // non-nil while the shared clock is running
}

// NewResourceCache creates a cache using loader for lazy context creation.
// tickEvery is the shared animation clock interval.
func NewResourceCache(loader ContextLoader, tickEvery time.Duration) *ResourceCache {
	return &ResourceCache{
		loader:    loader,
		tickEvery: tickEvery,
		entries:   make(map[string]*resourceEntry),
	}
}

// Acquire returns a handle for key, creating the underlying context on first
// call. Concurrent acquires for an unresolved key share the in-flight
// initialization; exactly one context is created per live key. Acquire blocks
// until initialization finishes or ctx is cancelled (the reference is kept
// either way, so a cancelled caller should still Release).
func (c *ResourceCache) Acquire(ctx context.Context, key string, opts AcquireOptions) (*ResourceHandle, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &resourceEntry{
			key:     key,
			persist: opts.Persist,
			holders: make(map[string]struct{}),
			ready:   make(chan struct{}),
		}
		c.entries[key] = e
		if len(c.entries) == 1 {
			c.startClock()
		}
		go c.initialize(e)
	} else if opts.Persist {
		e.persist = true
	}
	holder := uuid.New().String()
	e.holders[holder] = struct{}{}
	c.mu.Unlock()

	select {
	case <-e.ready:
	case <-ctx.Done():
		return &ResourceHandle{Key: key, holder: holder}, ctx.Err()
	}

	return &ResourceHandle{Key: key, Degraded: e.degraded, holder: holder}, nil
}

// initialize runs the loader for a fresh entry. A loader failure marks the
// entry degraded rather than removing it, so every acquirer still gets a
// handle back.
func (c *ResourceCache) initialize(e *resourceEntry) {
	rc, children, err := c.loader(context.Background(), e.key)
	c.mu.Lock()
	if err != nil {
		log.Printf("resource %q failed to load, degrading: %v", e.key, err)
		e.degraded = true
	} else {
		e.rc = rc
		e.children = children
	}
	c.mu.Unlock()
	close(e.ready)
}

// Attach reparents the context's renderable output under ownerID's display
// area. Safe to call repeatedly; a no-op if already attached to that owner.
func (c *ResourceCache) Attach(h *ResourceHandle, ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[h.Key]
	if !ok || e.attachedTo == ownerID {
		return
	}
	e.attachedTo = ownerID
}

// Detach removes the context's output from ownerID's display area. It never
// destroys the context; only Release may do that.
func (c *ResourceCache) Detach(h *ResourceHandle, ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[h.Key]
	if !ok || e.attachedTo != ownerID {
		return
	}
	e.attachedTo = ""
}

// Release drops the handle's reference. Releasing the same handle twice is a
// no-op. When the last holder releases a non-persistent entry, the entry is
// removed from the registry synchronously and its context destroyed
// asynchronously, so a concurrent re-Acquire always gets a fresh entry.
func (c *ResourceCache) Release(h *ResourceHandle) {
	c.mu.Lock()
	e, ok := c.entries[h.Key]
	if !ok {
		c.mu.Unlock()
		return
	}
	if _, held := e.holders[h.holder]; !held {
		c.mu.Unlock()
		return
	}
	delete(e.holders, h.holder)
	if len(e.holders) > 0 || e.persist {
		c.mu.Unlock()
		return
	}
	c.removeLocked(e)
	c.mu.Unlock()
	go c.teardown(e)
}

// Purge evicts a persistent entry. With no holders left it is destroyed now;
// otherwise it loses its persist flag and is destroyed on last Release.
func (c *ResourceCache) Purge(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.persist = false
	if len(e.holders) > 0 {
		c.mu.Unlock()
		return
	}
	c.removeLocked(e)
	c.mu.Unlock()
	go c.teardown(e)
}

// RefCount reports the number of active holders for key.
func (c *ResourceCache) RefCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0
	}
	return len(e.holders)
}

func (c *ResourceCache) removeLocked(e *resourceEntry) {
	delete(c.entries, e.key)
	if len(c.entries) == 0 {
		c.stopClockLocked()
	}
}

// teardown destroys the entry's children and context exactly once, after any
// in-flight initialization has finished.
func (c *ResourceCache) teardown(e *resourceEntry) {
	<-e.ready
	e.destroy.Do(func() {
		for _, child := range e.children {
			child.Destroy()
		}
		if e.rc != nil {
			e.rc.Destroy()
		}
	})
}

// startClock starts the shared animation clock. Called with c.mu held when
// the registry transitions from empty to non-empty; there is at most one
// clock goroutine regardless of how many contexts exist.
func (c *ResourceCache) startClock() {
	stop := make(chan struct{})
	c.clock = stop
	go func() {
		ticker := time.NewTicker(c.tickEvery)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case now := <-ticker.C:
				dt := now.Sub(last)
				last = now
				c.advanceAll(dt)
			case <-stop:
				return
			}
		}
	}()
}

func (c *ResourceCache) stopClockLocked() {
	if c.clock != nil {
		close(c.clock)
		c.clock = nil
	}
}

func (c *ResourceCache) advanceAll(dt time.Duration) {
	c.mu.Lock()
	contexts := make([]RenderContext, 0, len(c.entries))
	for _, e := range c.entries {
		select {
		case <-e.ready:
			if e.rc != nil {
				contexts = append(contexts, e.rc)
			}
		default:
		}
	}
	c.mu.Unlock()
	for _, rc := range contexts {
		rc.Advance(dt)
	}
}
