package transcript

import (
	"sort"
	"strings"

	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// Store is the immutable ground-truth transcript for one completed job:
// an ordered list of segments plus the full-text concatenation and an
// offset table mapping character positions back to the owning segment.
// All character positions are rune offsets into the concatenation.
type Store struct {
	segments []types.Segment
	text     []rune
	offsets  []int // offsets[i] = rune offset of segments[i].Text in text
}

// NewStore normalizes raw recognizer output and builds the store.
// Malformed timing is repaired, not rejected: inverted timestamps are
// clamped, overlapping segments are pushed forward to touch, and
// zero-duration segments with empty text are dropped.
func NewStore(raw []types.Segment) *Store {
	segments := make([]types.Segment, 0, len(raw))
	for _, seg := range raw {
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
		if seg.End == seg.Start && strings.TrimSpace(seg.Text) == "" {
			continue
		}
		segments = append(segments, seg)
	}

	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].Start != segments[j].Start {
			return segments[i].Start < segments[j].Start
		}
		return segments[i].End < segments[j].End
	})

	for i := 1; i < len(segments); i++ {
		if segments[i].Start < segments[i-1].End {
			segments[i].Start = segments[i-1].End
			if segments[i].End < segments[i].Start {
				segments[i].End = segments[i].Start
			}
		}
	}

	offsets := make([]int, len(segments))
	var text []rune
	for i, seg := range segments {
		offsets[i] = len(text)
		text = append(text, []rune(seg.Text)...)
	}

	return &Store{segments: segments, text: text, offsets: offsets}
}

// Len returns the number of segments.
func (s *Store) Len() int { return len(s.segments) }

// Segment returns the i-th segment.
func (s *Store) Segment(i int) types.Segment { return s.segments[i] }

// Segments returns the normalized segment list. Callers must not modify it.
func (s *Store) Segments() []types.Segment { return s.segments }

// Duration returns the end time of the last segment in seconds.
func (s *Store) Duration() float64 {
	if len(s.segments) == 0 {
		return 0
	}
	return s.segments[len(s.segments)-1].End
}

// Text returns the full-text concatenation of all segments.
func (s *Store) Text() string { return string(s.text) }

// TextLen returns the length of the concatenation in runes.
func (s *Store) TextLen() int { return len(s.text) }

// PlainText returns the trimmed segment texts in [from,to] joined by
// single spaces. This is the display form used by the summarizer.
func (s *Store) PlainText(from, to int) string {
	var sb strings.Builder
	for i := from; i <= to && i < len(s.segments); i++ {
		t := strings.TrimSpace(s.segments[i].Text)
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
	}
	return sb.String()
}

// WordCount counts whitespace-separated words across all segments.
func (s *Store) WordCount() int {
	return len(strings.Fields(string(s.text)))
}

// SegmentAt returns the index of the segment owning the given rune
// offset into the concatenation.
func (s *Store) SegmentAt(offset int) int {
	i := sort.Search(len(s.offsets), func(i int) bool {
		return s.offsets[i] > offset
	})
	if i > 0 {
		i--
	}
	return i
}

// segmentSpan returns the rune range [s0,s1) the i-th segment occupies
// in the concatenation.
func (s *Store) segmentSpan(i int) (int, int) {
	s0 := s.offsets[i]
	s1 := len(s.text)
	if i+1 < len(s.offsets) {
		s1 = s.offsets[i+1]
	}
	return s0, s1
}