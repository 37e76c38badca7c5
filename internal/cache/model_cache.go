package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/codebuildervaibhav/transcript-agent/internal/recognition"
	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

type modelEntry struct {
	handle     recognition.ModelHandle
	refs       int
	lastAccess time.Time
}

// ModelCache keeps loaded recognition models, at most capacity tiers
// resident at once. Loading a tier is mutually exclusive: concurrent
// requests for the same tier share one in-flight load instead of
// duplicating the expensive work; different tiers load in parallel.
type ModelCache struct {
	loader   recognition.ModelLoader
	capacity int

	mu      sync.Mutex
	entries map[types.ModelTier]*modelEntry
	loads   singleflight.Group
}

// NewModelCache creates a model cache over the given loader.
func NewModelCache(loader recognition.ModelLoader, capacity int) *ModelCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ModelCache{
		loader:   loader,
		capacity: capacity,
		entries:  make(map[types.ModelTier]*modelEntry),
	}
}

// Acquire returns a pinned handle for tier, loading the model if it is
// not resident. The returned release function must be called when the
// caller is done with the model.
func (c *ModelCache) Acquire(ctx context.Context, tier types.ModelTier) (recognition.ModelHandle, func(), error) {
	if handle, release, ok := c.pin(tier); ok {
		return handle, release, nil
	}

	_, err, _ := c.loads.Do(string(tier), func() (interface{}, error) {
		// Re-check under the flight: a concurrent waiter may have
		// already inserted the entry.
		c.mu.Lock()
		_, ok := c.entries[tier]
		c.mu.Unlock()
		if ok {
			return nil, nil
		}

		handle, err := c.loader.Load(ctx, tier)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[tier] = &modelEntry{handle: handle, lastAccess: time.Now()}
		c.evictLocked()
		c.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return recognition.ModelHandle{}, nil, types.E(types.KindModelLoad, err)
	}

	handle, release, ok := c.pin(tier)
	if !ok {
		// Loaded but already evicted by capacity pressure from other
		// tiers; extremely unlikely since fresh entries are the most
		// recently used, but fail classified rather than loop.
		return recognition.ModelHandle{}, nil, types.Errorf(types.KindModelLoad,
			"model %q evicted before use", tier)
	}
	return handle, release, nil
}

func (c *ModelCache) pin(tier types.ModelTier) (recognition.ModelHandle, func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[tier]
	if !ok {
		return recognition.ModelHandle{}, nil, false
	}
	entry.refs++
	entry.lastAccess = time.Now()

	var once sync.Once
	release := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if e, ok := c.entries[tier]; ok && e.refs > 0 {
				e.refs--
			}
			if len(c.entries) > c.capacity {
				c.evictLocked()
			}
		})
	}
	return entry.handle, release, true
}

// Resident returns the number of loaded tiers.
func (c *ModelCache) Resident() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ModelCache) evictLocked() {
	for len(c.entries) > c.capacity {
		var victim types.ModelTier
		var oldest time.Time
		found := false
		for tier, entry := range c.entries {
			if entry.refs > 0 {
				continue
			}
			if !found || entry.lastAccess.Before(oldest) {
				victim, oldest, found = tier, entry.lastAccess, true
			}
		}
		if !found {
			return
		}
		handle := c.entries[victim].handle
		delete(c.entries, victim)
		log.Printf("Unloading whisper model %q", victim)
		c.loader.Unload(handle)
	}
}