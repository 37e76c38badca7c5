package transcript

import (
	"iter"
	"strings"
	"unicode"
)

// SearchHit is a located occurrence of a query string, anchored to a
// playback timestamp. CharOffset is the rune offset of the match in the
// full-text concatenation; SegmentIndex is the segment containing the
// match's first character.
type SearchHit struct {
	SegmentIndex int     `json:"segment_index"`
	CharOffset   int     `json:"char_offset"`
	MatchedText  string  `json:"matched_text"`
	Timestamp    float64 `json:"timestamp"`
	SegmentText  string  `json:"segment_text"`
}

// Index answers phrase queries against a Store. Matching runs over the
// full-text concatenation, so a phrase split across a segment boundary
// by the recognizer is still found. Built once, read-only afterwards,
// safe for concurrent readers.
type Index struct {
	store  *Store
	folded []rune // store text lowercased rune-for-rune
}

// NewIndex builds the search index for a store.
func NewIndex(store *Store) *Index {
	folded := make([]rune, store.TextLen())
	for i, r := range store.text {
		folded[i] = unicode.ToLower(r)
	}
	return &Index{store: store, folded: folded}
}

// Search returns hits in ascending timestamp order. The sequence is
// lazy and restartable; iterating it twice rescans from the start.
// Overlapping occurrences are reported once per non-overlapping scan:
// the cursor advances past each match before looking for the next.
// An empty query yields an empty sequence.
func (ix *Index) Search(query string, caseSensitive bool) iter.Seq[SearchHit] {
	q := []rune(query)
	if !caseSensitive {
		for i, r := range q {
			q[i] = unicode.ToLower(r)
		}
	}

	return func(yield func(SearchHit) bool) {
		if len(q) == 0 {
			return
		}
		hay := ix.folded
		if caseSensitive {
			hay = ix.store.text
		}
		for i := 0; i+len(q) <= len(hay); {
			if !runesEqual(hay[i:i+len(q)], q) {
				i++
				continue
			}
			if !yield(ix.hitAt(i, len(q))) {
				return
			}
			i += len(q)
		}
	}
}

// SearchAll collects every hit into a slice.
func (ix *Index) SearchAll(query string, caseSensitive bool) []SearchHit {
	var hits []SearchHit
	for hit := range ix.Search(query, caseSensitive) {
		hits = append(hits, hit)
	}
	return hits
}

// hitAt builds the hit for a match starting at rune offset c. The
// timestamp is interpolated within the owning segment proportional to
// the character offset, since sub-segment timing is unavailable.
func (ix *Index) hitAt(c, n int) SearchHit {
	seg := ix.store.SegmentAt(c)
	s0, s1 := ix.store.segmentSpan(seg)
	span := s1 - s0
	if span < 1 {
		span = 1
	}
	segment := ix.store.Segment(seg)
	ts := segment.Start + (segment.End-segment.Start)*float64(c-s0)/float64(span)
	return SearchHit{
		SegmentIndex: seg,
		CharOffset:   c,
		MatchedText:  string(ix.store.text[c : c+n]),
		Timestamp:    ts,
		SegmentText:  strings.TrimSpace(segment.Text),
	}
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}