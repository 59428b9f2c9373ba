package span

import (
	"fmt"
	"strconv"
	"strings"
)

// splitLines splits on "\n" only; a trailing newline yields a final empty line.
func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// lineOffset returns the byte offset at which line index idx begins.
// idx must be within [0, len(lines)).
func lineOffset(lines []string, idx int) int {
	off := 0
	for _, l := range lines[:idx] {
		off += len(l) + 1
	}
	return off
}

// NumberLines prefixes every line with its right-aligned 1-based number,
// e.g. " 9| foo" / "10| bar". A single trailing newline is not numbered.
func NumberLines(text string) string {
	lines := splitLines(strings.TrimSuffix(text, "\n"))
	width := len(strconv.Itoa(len(lines)))
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%*d| %s", width, i+1, l)
	}
	return b.String()
}
