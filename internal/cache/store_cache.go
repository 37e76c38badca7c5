package cache

import (
	"log"
	"sync"
	"time"

	"github.com/codebuildervaibhav/transcript-agent/internal/transcript"
	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// StoreKey identifies a ready transcript: one source at one model tier.
type StoreKey struct {
	Source string
	Tier   types.ModelTier
}

// StoreHandle is a pinned reference to a cached transcript. The entry
// cannot be evicted until every handle is released.
type StoreHandle struct {
	Store *transcript.Store
	Index *transcript.Index

	cache *StoreCache
	key   StoreKey
	once  sync.Once
}

// Release unpins the entry. Safe to call more than once.
func (h *StoreHandle) Release() {
	h.once.Do(func() {
		h.cache.release(h.key)
	})
}

type storeEntry struct {
	store      *transcript.Store
	index      *transcript.Index
	refs       int
	lastAccess time.Time
}

// StoreCache is a capacity-bounded cache of ready transcripts. Eviction
// is least-recently-used among entries with zero active references and
// runs opportunistically on insert when over capacity.
type StoreCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[StoreKey]*storeEntry
}

// NewStoreCache creates a cache holding at most capacity transcripts.
func NewStoreCache(capacity int) *StoreCache {
	if capacity < 1 {
		capacity = 1
	}
	return &StoreCache{
		capacity: capacity,
		entries:  make(map[StoreKey]*storeEntry),
	}
}

// Acquire pins and returns the entry for key, or nil if absent.
func (c *StoreCache) Acquire(key StoreKey) *StoreHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	entry.refs++
	entry.lastAccess = time.Now()
	return &StoreHandle{Store: entry.store, Index: entry.index, cache: c, key: key}
}

// Insert publishes a completed transcript under key, then sweeps LRU
// entries with zero references while over capacity.
func (c *StoreCache) Insert(key StoreKey, store *transcript.Store, index *transcript.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &storeEntry{store: store, index: index, lastAccess: time.Now()}
	c.evictLocked()
}

// Len returns the number of cached transcripts.
func (c *StoreCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *StoreCache) release(key StoreKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok && entry.refs > 0 {
		entry.refs--
	}
	if len(c.entries) > c.capacity {
		c.evictLocked()
	}
}

// evictLocked removes least-recently-used unpinned entries until the
// cache fits its capacity. Pinned entries are never touched, so the
// cache may stay over capacity while everything is in use.
func (c *StoreCache) evictLocked() {
	for len(c.entries) > c.capacity {
		var victim StoreKey
		var oldest time.Time
		found := false
		for key, entry := range c.entries {
			if entry.refs > 0 {
				continue
			}
			if !found || entry.lastAccess.Before(oldest) {
				victim, oldest, found = key, entry.lastAccess, true
			}
		}
		if !found {
			return
		}
		delete(c.entries, victim)
		log.Printf("Evicted cached transcript %s/%s", victim.Source, victim.Tier)
	}
}