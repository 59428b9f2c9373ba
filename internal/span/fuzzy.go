package span

import (
	"math"
	"strings"

	"github.com/agext/levenshtein"
)

// FuzzyMatcher accepts near-literal quotes. A literal hit is always
// preferred; otherwise the candidate window with the smallest edit distance
// wins (earliest on ties) provided its similarity reaches Tolerance.
//
// Resolved spans produced this way cover the matched source text, which may
// differ from the quote. Candidate windows start where the quote's first rune
// appears or at the first non-blank byte of a line, so a typo in the very
// first character is only forgiven at line starts.
type FuzzyMatcher struct {
	Tolerance float64
}

func (m FuzzyMatcher) Match(region, quote string) (int, int, bool) {
	if k := strings.Index(region, quote); k >= 0 {
		return k, len(quote), true
	}
	if m.Tolerance <= 0 || m.Tolerance > 1 {
		return 0, 0, false
	}
	q := []rune(quote)
	qn := len(q)
	budget := int(math.Floor(float64(qn) * (1 - m.Tolerance)))
	if budget == 0 {
		return 0, 0, false
	}
	minLen, maxLen := qn-budget, qn+budget
	if minLen < 1 {
		minLen = 1
	}

	// offs[i] is the byte offset of rune i; offs[len(text)] == len(region).
	text := make([]rune, 0, len(region))
	offs := make([]int, 0, len(region)+1)
	for i, r := range region {
		text = append(text, r)
		offs = append(offs, i)
	}
	offs = append(offs, len(region))

	bestStart, bestEnd, bestDist := 0, 0, budget+1
	lineStart := true
	for s, r := range text {
		candidate := r == q[0] || (lineStart && r != ' ' && r != '\t')
		if r == '\n' {
			lineStart = true
		} else if r != ' ' && r != '\t' {
			lineStart = false
		}
		if !candidate {
			continue
		}
		// No match is literal, so a distance of 1 cannot be beaten.
		if bestDist <= 1 {
			break
		}
		top := s + maxLen
		if top > len(text) {
			top = len(text)
		}
		if top-s < minLen {
			continue
		}
		limit := bestDist - 1
		// Growing or shrinking a window by one rune moves its distance by
		// at most one, so the longest window bounds every shorter one.
		slack := top - s - minLen
		if d := distance(text[s:top], q, limit+slack); d > limit+slack {
			continue
		}
		for end := s + minLen; end <= top; end++ {
			d := distance(text[s:end], q, limit)
			if d <= limit && similarity(d, qn, end-s) >= m.Tolerance {
				bestStart, bestEnd, bestDist = s, end, d
				if limit = d - 1; limit <= 0 {
					break
				}
			}
		}
	}
	if bestDist > budget {
		return 0, 0, false
	}
	return offs[bestStart], offs[bestEnd] - offs[bestStart], true
}

// distance is the unit-cost edit distance, or some value above maxCost once
// it is known to exceed it. maxCost must be positive.
func distance(window, quote []rune, maxCost int) int {
	d, _, _ := levenshtein.Calculate(window, quote, maxCost, 1, 1, 1)
	return d
}

func similarity(dist, a, b int) float64 {
	n := a
	if b > n {
		n = b
	}
	if n == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(n)
}
