package span

import "strings"

// Matcher locates quote inside region. It returns the byte offset of the
// match within region and the byte length of the matched text.
type Matcher interface {
	Match(region, quote string) (offset, length int, ok bool)
}

// ExactMatcher finds the first literal occurrence of the quote.
type ExactMatcher struct{}

func (ExactMatcher) Match(region, quote string) (int, int, bool) {
	k := strings.Index(region, quote)
	if k < 0 {
		return 0, 0, false
	}
	return k, len(quote), true
}

// Resolver turns approximate spans into exact byte ranges using Matcher.
// The zero value matches literally.
type Resolver struct {
	Matcher Matcher
}

// NewResolver picks a strategy for the given tolerance: 1 means literal
// matching only, anything in (0, 1) enables FuzzyMatcher.
func NewResolver(tolerance float64) (Resolver, error) {
	if tolerance <= 0 || tolerance > 1 {
		return Resolver{}, ErrInvalidTolerance
	}
	if tolerance == 1 {
		return Resolver{Matcher: ExactMatcher{}}, nil
	}
	return Resolver{Matcher: FuzzyMatcher{Tolerance: tolerance}}, nil
}

// Resolve locates a.Quote in text at or after line a.StartLine.
func Resolve(a Approximate, text string) (Resolved, error) {
	return Resolver{}.Resolve(a, text)
}

func (r Resolver) Resolve(a Approximate, text string) (Resolved, error) {
	if a.Quote == "" {
		return Resolved{}, ErrEmptyQuote
	}
	lines := splitLines(text)
	idx := a.StartLine - 1
	if idx < 0 || idx >= len(lines) {
		return Resolved{}, &LineOutOfRangeError{StartLine: a.StartLine, Lines: len(lines)}
	}

	m := r.Matcher
	if m == nil {
		m = ExactMatcher{}
	}
	// Equivalent to len(prefix) plus the joining newline when idx > 0.
	base := lineOffset(lines, idx)
	k, n, ok := m.Match(text[base:], a.Quote)
	if !ok {
		return Resolved{}, &QuoteNotFoundError{Quote: a.Quote, StartLine: a.StartLine, Line: lines[idx]}
	}
	start := base + k
	return Resolved{Start: start, Stop: start + n, Reason: a.Reason}, nil
}
