package transcript

import (
	"math"
	"testing"

	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

func boundaryStore() *Store {
	return NewStore([]types.Segment{
		{Start: 0, End: 2, Text: "hel"},
		{Start: 2, End: 4, Text: "lo wo"},
		{Start: 4, End: 6, Text: "rld"},
	})
}

func TestSearch_SpansSegmentBoundary(t *testing.T) {
	index := NewIndex(boundaryStore())

	hits := index.SearchAll("Hello World", false)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}

	hit := hits[0]
	if hit.SegmentIndex != 0 {
		t.Errorf("SegmentIndex = %d, want 0", hit.SegmentIndex)
	}
	if hit.CharOffset != 0 {
		t.Errorf("CharOffset = %d, want 0", hit.CharOffset)
	}
	if hit.MatchedText != "hello world" {
		t.Errorf("MatchedText = %q, want %q", hit.MatchedText, "hello world")
	}
	if math.Abs(hit.Timestamp) > 1e-9 {
		t.Errorf("Timestamp = %v, want 0", hit.Timestamp)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	index := NewIndex(boundaryStore())

	if hits := index.SearchAll("", false); len(hits) != 0 {
		t.Errorf("empty query returned %d hits, want 0", len(hits))
	}
	if hits := index.SearchAll("", true); len(hits) != 0 {
		t.Errorf("empty case-sensitive query returned %d hits, want 0", len(hits))
	}
}

func TestSearch_CaseSensitivity(t *testing.T) {
	store := NewStore([]types.Segment{{Start: 0, End: 4, Text: "Hello There"}})
	index := NewIndex(store)

	if hits := index.SearchAll("hello", true); len(hits) != 0 {
		t.Errorf("case-sensitive %q returned %d hits, want 0", "hello", len(hits))
	}
	if hits := index.SearchAll("Hello", true); len(hits) != 1 {
		t.Errorf("case-sensitive %q returned %d hits, want 1", "Hello", len(hits))
	}
	if hits := index.SearchAll("hELLo", false); len(hits) != 1 {
		t.Errorf("case-insensitive %q returned %d hits, want 1", "hELLo", len(hits))
	}
}

func TestSearch_NonOverlappingScan(t *testing.T) {
	store := NewStore([]types.Segment{{Start: 0, End: 4, Text: "aaaa"}})
	index := NewIndex(store)

	hits := index.SearchAll("aa", false)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].CharOffset != 0 || hits[1].CharOffset != 2 {
		t.Errorf("offsets = %d,%d, want 0,2", hits[0].CharOffset, hits[1].CharOffset)
	}
}

func TestSearch_TimestampInterpolation(t *testing.T) {
	// Segment of 10s over 10 characters: one second per character.
	store := NewStore([]types.Segment{{Start: 10, End: 20, Text: "abcdefghij"}})
	index := NewIndex(store)

	hits := index.SearchAll("f", false)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if got, want := hits[0].Timestamp, 15.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("Timestamp = %v, want %v", got, want)
	}
}

func TestSearch_AscendingTimestamps(t *testing.T) {
	store := NewStore([]types.Segment{
		{Start: 0, End: 5, Text: "the cat sat"},
		{Start: 5, End: 10, Text: " on the mat"},
	})
	index := NewIndex(store)

	hits := index.SearchAll("the", false)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Timestamp >= hits[1].Timestamp {
		t.Errorf("timestamps not ascending: %v then %v", hits[0].Timestamp, hits[1].Timestamp)
	}
	if hits[1].SegmentIndex != 1 {
		t.Errorf("second hit SegmentIndex = %d, want 1", hits[1].SegmentIndex)
	}
}

func TestSearch_Restartable(t *testing.T) {
	index := NewIndex(boundaryStore())
	seq := index.Search("o", false)

	var first, second []SearchHit
	for hit := range seq {
		first = append(first, hit)
	}
	for hit := range seq {
		second = append(second, hit)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("got %d then %d hits, want 2 and 2", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("hit %d differs between iterations: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSearch_EarlyStop(t *testing.T) {
	store := NewStore([]types.Segment{{Start: 0, End: 4, Text: "x x x x"}})
	index := NewIndex(store)

	count := 0
	for range index.Search("x", false) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("stopped after %d hits, want 2", count)
	}
}