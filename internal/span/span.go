package span

import (
	"errors"
	"fmt"
)

var (
	ErrQuoteNotFound    = errors.New("span: quote not found")
	ErrLineOutOfRange   = errors.New("span: start line out of range")
	ErrEmptyQuote       = errors.New("span: quote is empty")
	ErrInvalidTolerance = errors.New("span: match tolerance must be in (0, 1]")
)

// Approximate is a region locator as reported by an agent: the line on or
// after which the quote begins, the quoted text, and why it was picked.
type Approximate struct {
	StartLine int    `json:"start_line"`
	Quote     string `json:"quote"`
	Reason    string `json:"reason"`
}

// Resolved is a half-open byte range [Start, Stop) into the source text.
type Resolved struct {
	Start  int    `json:"start" msgpack:"start"`
	Stop   int    `json:"stop" msgpack:"stop"`
	Reason string `json:"reason" msgpack:"reason"`
}

// Len returns the width of the range in bytes.
func (r Resolved) Len() int { return r.Stop - r.Start }

// Contains reports whether o lies strictly inside r.
func (r Resolved) Contains(o Resolved) bool {
	return r.Start < o.Start && r.Stop > o.Stop
}

// Intersects reports whether o starts inside or touching r.
// Both spans are assumed ordered so that r.Start <= o.Start.
func (r Resolved) Intersects(o Resolved) bool {
	return r.Start <= o.Start && o.Start <= r.Stop
}

// QuoteNotFoundError carries the quote that could not be located and the
// content of the line the agent claimed it starts on.
type QuoteNotFoundError struct {
	Quote     string
	StartLine int
	Line      string
}

func (e *QuoteNotFoundError) Error() string {
	return fmt.Sprintf("span: quote not found in content starting from line %d: %q. Specified start line's content is %q",
		e.StartLine, e.Quote, e.Line)
}

func (e *QuoteNotFoundError) Unwrap() error { return ErrQuoteNotFound }

// LineOutOfRangeError reports a start line outside the text.
type LineOutOfRangeError struct {
	StartLine int
	Lines     int
}

func (e *LineOutOfRangeError) Error() string {
	return fmt.Sprintf("span: start line %d out of range (text has %d lines)", e.StartLine, e.Lines)
}

func (e *LineOutOfRangeError) Unwrap() error { return ErrLineOutOfRange }
