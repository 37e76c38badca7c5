package transcript

import (
	"fmt"
	"strings"
)

// FormatTimestamp renders seconds as HH:MM:SS, the format used for
// exported transcript lines.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

// Export renders the transcript as plain text, one segment per line:
//
//	[HH:MM:SS] text
func (s *Store) Export() string {
	var sb strings.Builder
	for _, seg := range s.segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "[%s] %s\n", FormatTimestamp(seg.Start), text)
	}
	return sb.String()
}