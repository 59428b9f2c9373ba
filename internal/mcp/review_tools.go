package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"spanreview/internal/util/jsonutil"
)

// Capabilities is what a review session offers to an agent.
type Capabilities interface {
	AddSpan(startLine int, quote, reason string) (bool, error)
	ViewCode() string
}

// RegisterReviewTools installs review.add_span and review.view_code backed
// by caps.
func RegisterReviewTools(r *Registry, caps Capabilities) error {
	if caps == nil {
		return fmt.Errorf("mcp: review capabilities are nil")
	}
	if err := r.Register(&addSpanTool{caps: caps}); err != nil {
		return err
	}
	return r.Register(&viewCodeTool{caps: caps})
}

// --------------------- review.add_span ---------------------

type addSpanTool struct{ caps Capabilities }

type addSpanInput struct {
	StartLine int    `json:"start_line"`
	Quote     string `json:"quote"`
	Reason    string `json:"reason"`
}

type addSpanOutput struct {
	Added bool `json:"added"`
}

func (t *addSpanTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        "review.add_span",
		Description: "Select a span of the code that matches the current task and save it with a short reason.",
		InputSchema: json.RawMessage(`{"type":"object","required":["start_line","quote","reason"],"properties":{` +
			`"start_line":{"type":"integer","description":"1-based line on which the quote starts"},` +
			`"quote":{"type":"string","description":"verbatim code, without line number prefixes"},` +
			`"reason":{"type":"string","description":"why this span was selected"}}}`),
		OutputSchema: json.RawMessage(`{"type":"object","properties":{"added":{"type":"boolean"}}}`),
	}
}

func (t *addSpanTool) Call(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in addSpanInput
	if err := jsonutil.UnmarshalFlex(input, &in); err != nil {
		return nil, fmt.Errorf("review.add_span: %w", err)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("review.add_span: reason required")
	}
	ok, err := t.caps.AddSpan(in.StartLine, in.Quote, in.Reason)
	if err != nil {
		return nil, err
	}
	return jsonutil.MarshalNoEscape(addSpanOutput{Added: ok})
}

// --------------------- review.view_code ---------------------

type viewCodeTool struct{ caps Capabilities }

type viewCodeOutput struct {
	Code string `json:"code"`
}

func (t *viewCodeTool) Spec() ToolSpec {
	return ToolSpec{
		Name:         "review.view_code",
		Description:  "View the code under review, with 1-based line numbers for reference.",
		OutputSchema: json.RawMessage(`{"type":"object","properties":{"code":{"type":"string"}}}`),
	}
}

func (t *viewCodeTool) Call(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return jsonutil.MarshalNoEscape(viewCodeOutput{Code: t.caps.ViewCode()})
}
