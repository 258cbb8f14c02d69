package strings

import (
	"strings"
)

// DefaultCellMaxLen is the default maximum width of a table cell.
const DefaultCellMaxLen = 60

// MinTruncateLen is the smallest maxLen that leaves room for one character
// plus "...".
const MinTruncateLen = 4

const ellipsis = "..."

// Truncate collapses s to a single line and cuts it to maxLen runes,
// ending with "..." when cut. maxLen below MinTruncateLen is clamped.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-len(ellipsis)]) + ellipsis
	}
	return s
}

// TruncateMiddle keeps the start and end of s and replaces the middle with
// "...", so hosts and identifiers stay recognizable in narrow output.
func TruncateMiddle(s string, maxLen int) string {
	if maxLen < MinTruncateLen+1 {
		maxLen = MinTruncateLen + 1
	}

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	keep := maxLen - len(ellipsis)
	head := (keep + 1) / 2
	tail := keep - head
	return string(runes[:head]) + ellipsis + string(runes[len(runes)-tail:])
}
