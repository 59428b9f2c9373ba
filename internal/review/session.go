package review

import (
	"spanreview/internal/mcp"
	"spanreview/internal/span"
)

// Session owns the spans collected while reviewing one piece of code.
// It is not safe for concurrent use; the tool loop calls it sequentially.
type Session struct {
	code     string
	resolver span.Resolver
	spans    []span.Resolved
}

var _ mcp.Capabilities = (*Session)(nil)

func NewSession(code string, resolver span.Resolver) *Session {
	return &Session{code: code, resolver: resolver}
}

// AddSpan resolves the approximate location and records it. Resolution
// errors are returned unchanged so the agent can correct its quote.
func (s *Session) AddSpan(startLine int, quote, reason string) (bool, error) {
	r, err := s.resolver.Resolve(span.Approximate{StartLine: startLine, Quote: quote, Reason: reason}, s.code)
	if err != nil {
		return false, err
	}
	s.spans = append(s.spans, r)
	return true, nil
}

// ViewCode returns the code with 1-based line numbers.
func (s *Session) ViewCode() string { return span.NumberLines(s.code) }

// Len reports how many spans have been recorded.
func (s *Session) Len() int { return len(s.spans) }

// Merged returns the recorded spans with overlaps fused for display.
func (s *Session) Merged() []span.Resolved { return span.Merge(s.spans) }
