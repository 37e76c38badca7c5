package transcript

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SummaryUnit is one condensed block of a summary, traceable to the
// contiguous segment range it was produced from.
type SummaryUnit struct {
	FromSegment int    `json:"from_segment"`
	ToSegment   int    `json:"to_segment"`
	Text        string `json:"text"`
}

// Condenser compresses one window of transcript text. Supplying one is
// optional; without it the summarizer emits windows verbatim.
type Condenser interface {
	Condense(text string) (string, error)
}

// Summarizer partitions a segment range into contiguous windows whose
// cumulative text length stays within a caller-supplied bound. Window
// boundaries prefer sentence ends and a window never splits mid-word.
// Output is deterministic for a given store, range and bound.
type Summarizer struct {
	condenser Condenser
}

// NewSummarizer creates a summarizer. condenser may be nil for plain
// extractive output.
func NewSummarizer(condenser Condenser) *Summarizer {
	return &Summarizer{condenser: condenser}
}

// Summarize condenses segments [from,to] of the store. Negative range
// bounds select the whole store. The total rune length of the returned
// unit texts never exceeds maxChars.
func (sm *Summarizer) Summarize(store *Store, maxChars, from, to int) ([]SummaryUnit, error) {
	if store.Len() == 0 || maxChars <= 0 {
		return nil, nil
	}
	if from < 0 {
		from = 0
	}
	if to < 0 || to >= store.Len() {
		to = store.Len() - 1
	}
	if from > to {
		return nil, fmt.Errorf("invalid segment range [%d,%d]", from, to)
	}

	// Everything fits: one window covering the whole range.
	if sm.condenser == nil {
		full := store.PlainText(from, to)
		if full == "" {
			return nil, nil
		}
		if utf8.RuneCountInString(full) <= maxChars {
			return []SummaryUnit{{FromSegment: from, ToSegment: to, Text: full}}, nil
		}
	}

	var units []SummaryUnit
	budget := maxChars
	i := from
	for i <= to && budget > 0 {
		text, next := growWindow(store, i, to, budget)
		if next > i && text == "" {
			// Only empty segments in the window; nothing to emit.
			i = next
			continue
		}
		if next == i {
			// Not even one whole segment fits; truncate within it at
			// a word boundary, never mid-word.
			text = truncateAtWord(strings.TrimSpace(store.Segment(i).Text), budget)
			if text == "" {
				break
			}
			next = i + 1
		}

		if sm.condenser != nil {
			condensed, err := sm.condenser.Condense(text)
			if err != nil {
				return nil, fmt.Errorf("condense window [%d,%d]: %w", i, next-1, err)
			}
			text = truncateAtWord(strings.TrimSpace(condensed), budget)
			if text == "" {
				break
			}
		}

		units = append(units, SummaryUnit{FromSegment: i, ToSegment: next - 1, Text: text})
		budget -= utf8.RuneCountInString(text)
		i = next
	}

	return units, nil
}

// growWindow accumulates segments starting at i while the window text
// stays within budget, closing the window at the first sentence end.
// Returns the window text and the index of the first segment not taken.
func growWindow(store *Store, i, to, budget int) (string, int) {
	var sb strings.Builder
	length := 0
	j := i
	for j <= to {
		t := strings.TrimSpace(store.Segment(j).Text)
		if t == "" {
			j++
			continue
		}
		add := utf8.RuneCountInString(t)
		if length > 0 {
			add++ // joining space
		}
		if length+add > budget {
			break
		}
		if length > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
		length += add
		j++
		if endsSentence(t) {
			break
		}
	}
	return sb.String(), j
}

// endsSentence reports whether t ends a sentence, ignoring trailing
// closing quotes and brackets.
func endsSentence(t string) bool {
	t = strings.TrimRight(t, "\"')]”’")
	if t == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(t)
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

// truncateAtWord cuts text to at most max runes at a word boundary.
// If not even the first word fits, the result is empty.
func truncateAtWord(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	cut := -1
	for k := 0; k < len(runes) && k <= max; k++ {
		if runes[k] == ' ' {
			cut = k
		}
	}
	if cut <= 0 {
		return ""
	}
	return strings.TrimRight(string(runes[:cut]), " ")
}