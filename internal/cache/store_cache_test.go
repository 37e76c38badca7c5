package cache

import (
	"testing"

	"github.com/codebuildervaibhav/transcript-agent/internal/transcript"
	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

func testStore(text string) (*transcript.Store, *transcript.Index) {
	store := transcript.NewStore([]types.Segment{{Start: 0, End: 1, Text: text}})
	return store, transcript.NewIndex(store)
}

func key(source string) StoreKey {
	return StoreKey{Source: source, Tier: types.TierBase}
}

func TestStoreCache_MissReturnsNil(t *testing.T) {
	c := NewStoreCache(2)
	if handle := c.Acquire(key("missing")); handle != nil {
		t.Error("Acquire on empty cache returned a handle")
	}
}

func TestStoreCache_InsertThenAcquire(t *testing.T) {
	c := NewStoreCache(2)
	store, index := testStore("hello")
	c.Insert(key("a"), store, index)

	handle := c.Acquire(key("a"))
	if handle == nil {
		t.Fatal("Acquire returned nil after Insert")
	}
	defer handle.Release()

	if handle.Store != store {
		t.Error("handle returned a different store")
	}
	if hits := handle.Index.SearchAll("hello", false); len(hits) != 1 {
		t.Errorf("cached index returned %d hits, want 1", len(hits))
	}
}

func TestStoreCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewStoreCache(2)
	for _, source := range []string{"a", "b"} {
		store, index := testStore(source)
		c.Insert(key(source), store, index)
	}

	// Touch "a" so "b" becomes the eviction candidate.
	if h := c.Acquire(key("a")); h != nil {
		h.Release()
	}

	store, index := testStore("c")
	c.Insert(key("c"), store, index)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if h := c.Acquire(key("b")); h != nil {
		h.Release()
		t.Error("least recently used entry survived eviction")
	}
	if h := c.Acquire(key("a")); h == nil {
		t.Error("recently used entry was evicted")
	} else {
		h.Release()
	}
}

func TestStoreCache_PinnedEntryNeverEvicted(t *testing.T) {
	c := NewStoreCache(1)
	store, index := testStore("pinned")
	c.Insert(key("pinned"), store, index)

	handle := c.Acquire(key("pinned"))
	if handle == nil {
		t.Fatal("Acquire returned nil")
	}

	// Push past capacity while the first entry is pinned.
	other, otherIndex := testStore("other")
	c.Insert(key("other"), other, otherIndex)

	if h := c.Acquire(key("pinned")); h == nil {
		t.Fatal("pinned entry was evicted under capacity pressure")
	} else {
		h.Release()
	}

	// Once released, the sweep on the next release may evict it.
	handle.Release()
	if c.Len() > 1 {
		t.Errorf("Len = %d after release, want at most 1", c.Len())
	}
}

func TestStoreCache_ReleaseIsIdempotent(t *testing.T) {
	c := NewStoreCache(1)
	store, index := testStore("x")
	c.Insert(key("x"), store, index)

	handle := c.Acquire(key("x"))
	handle.Release()
	handle.Release() // second release must not underflow the refcount

	second := c.Acquire(key("x"))
	if second == nil {
		t.Fatal("entry disappeared after double release")
	}
	second.Release()
}