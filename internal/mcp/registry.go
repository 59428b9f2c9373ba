package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownTool   = errors.New("mcp: unknown tool")
	ErrDuplicateTool = errors.New("mcp: tool already registered")
)

// ToolSpec documents a tool's contract (name + schemas).
type ToolSpec struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// Tool is a minimal in-process MCP-style tool.
type Tool interface {
	Spec() ToolSpec
	Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// Registry dispatches calls to the tools of one review session. Tools are
// registered before the session starts; registration is not synchronized.
type Registry struct {
	tools map[string]Tool
	specs []ToolSpec // sorted by name
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds t. Names must be non-empty and unique.
func (r *Registry) Register(t Tool) error {
	if r == nil {
		return fmt.Errorf("mcp: registry is nil")
	}
	if t == nil {
		return fmt.Errorf("mcp: nil tool")
	}
	spec := t.Spec()
	if spec.Name == "" {
		return fmt.Errorf("mcp: tool has no name")
	}
	if _, ok := r.tools[spec.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, spec.Name)
	}
	if r.tools == nil {
		r.tools = map[string]Tool{}
	}
	r.tools[spec.Name] = t
	i := sort.Search(len(r.specs), func(i int) bool { return r.specs[i].Name > spec.Name })
	r.specs = append(r.specs, ToolSpec{})
	copy(r.specs[i+1:], r.specs[i:])
	r.specs[i] = spec
	return nil
}

// Call invokes a registered tool.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	if r == nil {
		return nil, fmt.Errorf("mcp: registry is nil")
	}
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTool, name)
	}
	return t.Call(ctx, input)
}

// Specs returns the registered specs sorted by name, so prompts built from
// them are stable across runs.
func (r *Registry) Specs() []ToolSpec {
	if r == nil || len(r.specs) == 0 {
		return nil
	}
	return append([]ToolSpec(nil), r.specs...)
}
