package span

import "sort"

// ReasonSeparator joins the reasons of two fused spans.
const ReasonSeparator = "\n...\n"

// Merge fuses adjacent intersecting spans until nothing changes. A span
// strictly nested in its left neighbour is kept as is so its reason stays
// distinguishable; any other overlap, including touching ends, is fused.
// The result is sorted by (Start, Stop). The input is not modified.
func Merge(spans []Resolved) []Resolved {
	out := make([]Resolved, len(spans))
	copy(out, spans)
	for {
		n := len(out)
		out = mergePass(out)
		if len(out) == n {
			return out
		}
	}
}

func mergePass(spans []Resolved) []Resolved {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].Stop < spans[j].Stop
	})
	// After this sort a right neighbour never starts before its left one, so
	// only left-contains-right needs checking.
	i := 0
	for i < len(spans)-1 {
		left, right := spans[i], spans[i+1]
		switch {
		case left.Contains(right):
			i++
		case left.Intersects(right):
			spans[i] = fuse(left, right)
			spans = append(spans[:i+1], spans[i+2:]...)
		default:
			i++
		}
	}
	return spans
}

func fuse(left, right Resolved) Resolved {
	return Resolved{
		Start:  min(left.Start, right.Start),
		Stop:   max(left.Stop, right.Stop),
		Reason: left.Reason + ReasonSeparator + right.Reason,
	}
}
