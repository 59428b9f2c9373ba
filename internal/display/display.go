package display

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"spanreview/internal/span"
)

type Options struct {
	// NoColor disables highlighting; spans are still listed with their lines.
	NoColor bool
}

var palette = []color.Attribute{
	color.BgYellow,
	color.BgCyan,
	color.BgMagenta,
	color.BgGreen,
	color.BgBlue,
	color.BgRed,
}

// Render writes the numbered code with each span highlighted, followed by
// a numbered list of span reasons. Where spans nest, the innermost one
// decides the colour of a byte.
func Render(w io.Writer, code string, spans []span.Resolved, opts Options) error {
	sorted := append([]span.Resolved(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Stop < sorted[j].Stop
	})
	for _, s := range sorted {
		if s.Start < 0 || s.Stop < s.Start || s.Stop > len(code) {
			return fmt.Errorf("display: span [%d, %d) outside code of %d bytes", s.Start, s.Stop, len(code))
		}
	}

	styles := make([]*color.Color, len(sorted))
	for i := range sorted {
		c := color.New(color.FgBlack, palette[i%len(palette)])
		if opts.NoColor {
			c.DisableColor()
		}
		styles[i] = c
	}

	lines := strings.Split(strings.TrimSuffix(code, "\n"), "\n")
	width := len(strconv.Itoa(len(lines)))
	var b strings.Builder
	off := 0
	for i, line := range lines {
		fmt.Fprintf(&b, "%*d| ", width, i+1)
		writeHighlighted(&b, line, off, sorted, styles)
		b.WriteByte('\n')
		off += len(line) + 1
	}

	if len(sorted) > 0 {
		b.WriteByte('\n')
	}
	for i, s := range sorted {
		reason := strings.ReplaceAll(s.Reason, "\n", "\n    ")
		fmt.Fprintf(&b, "%s %s: %s\n", styles[i].Sprintf("[%d]", i+1), lineRange(code, s), reason)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeHighlighted emits line in runs of bytes that share the same owner.
func writeHighlighted(b *strings.Builder, line string, base int, spans []span.Resolved, styles []*color.Color) {
	runStart := 0
	runOwner := owner(base, spans)
	for i := 1; i <= len(line); i++ {
		cur := -2
		if i < len(line) {
			cur = owner(base+i, spans)
		}
		if cur == runOwner {
			continue
		}
		seg := line[runStart:i]
		if runOwner >= 0 {
			seg = styles[runOwner].Sprint(seg)
		}
		b.WriteString(seg)
		runStart, runOwner = i, cur
	}
}

// owner returns the index of the narrowest span covering pos, or -1.
func owner(pos int, spans []span.Resolved) int {
	best := -1
	for i, s := range spans {
		if pos < s.Start || pos >= s.Stop {
			continue
		}
		if best < 0 || s.Len() <= spans[best].Len() {
			best = i
		}
	}
	return best
}

func lineRange(code string, s span.Resolved) string {
	first := strings.Count(code[:s.Start], "\n") + 1
	last := first
	if s.Stop > s.Start {
		last = strings.Count(code[:s.Stop-1], "\n") + 1
	}
	if first == last {
		return "L" + strconv.Itoa(first)
	}
	return fmt.Sprintf("L%d-%d", first, last)
}
