package llmtool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"spanreview/internal/llm"
	"spanreview/internal/mcp"
)

// DefaultMaxIters bounds a task when ToolLoop.MaxIters is unset. Every
// tool call costs one iteration, so it has to leave room for a model that
// selects many spans before answering.
const DefaultMaxIters = 25

var (
	ErrMaxIterations  = errors.New("llmtool: max iterations reached")
	ErrUnknownAction  = errors.New("llmtool: unknown action")
	ErrToolNotAllowed = errors.New("llmtool: tool not allowed")
)

// MaxIterationsError reports a loop that ran out of iterations before the
// model answered. Tool calls made up to that point still took effect.
type MaxIterationsError struct {
	Iterations int
	ToolCalls  int
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("%v after %d iterations (%d tool calls)", ErrMaxIterations, e.Iterations, e.ToolCalls)
}

func (e *MaxIterationsError) Is(target error) bool { return target == ErrMaxIterations }

// ToolProvider abstracts tool registry calls.
type ToolProvider interface {
	Specs() []mcp.ToolSpec
	Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error)
}

// PromptBuilder builds the LLM prompt given tool specs and current tool state.
type PromptBuilder func(ctx context.Context, state *ToolState, tools []mcp.ToolSpec) (string, error)

// ToolLoop asks the model for one action per iteration until it returns a
// final answer. A failing tool call does not end the loop: its error is
// recorded and shown to the model on the next iteration so it can correct
// itself.
type ToolLoop struct {
	LLM      llm.Client
	Tools    ToolProvider
	MaxIters int
	Allowed  []string
}

// ToolState captures tool results across iterations.
type ToolState struct {
	Input       any
	Iterations  int
	ToolResults []ToolResult
}

// Failed counts tool results that carry an error.
func (s *ToolState) Failed() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, tr := range s.ToolResults {
		if tr.Error != "" {
			n++
		}
	}
	return n
}

// ToolResult captures the output of a tool call.
type ToolResult struct {
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Run executes the loop and returns the model's final JSON. The state is
// returned on every path past argument validation, including a
// *MaxIterationsError.
func (l *ToolLoop) Run(ctx context.Context, input any, build PromptBuilder) (json.RawMessage, *ToolState, error) {
	if l == nil || l.LLM == nil || l.Tools == nil {
		return nil, nil, fmt.Errorf("llmtool: missing LLM or tools")
	}
	if build == nil {
		return nil, nil, fmt.Errorf("llmtool: prompt builder is nil")
	}
	limit := l.MaxIters
	if limit <= 0 {
		limit = DefaultMaxIters
	}
	allowed := allowSet(l.Allowed)
	state := &ToolState{Input: input}
	tools := l.Tools.Specs()

	for state.Iterations < limit {
		if err := ctx.Err(); err != nil {
			return nil, state, err
		}
		state.Iterations++
		final, done, err := l.step(ctx, state, tools, allowed, build)
		if err != nil || done {
			return final, state, err
		}
	}
	return nil, state, &MaxIterationsError{Iterations: state.Iterations, ToolCalls: len(state.ToolResults)}
}

// step runs one model turn. done reports that final holds the answer.
func (l *ToolLoop) step(ctx context.Context, state *ToolState, tools []mcp.ToolSpec, allowed map[string]bool, build PromptBuilder) (json.RawMessage, bool, error) {
	prompt, err := build(ctx, state, tools)
	if err != nil {
		return nil, false, err
	}
	raw, err := l.LLM.GenerateJSON(ctx, prompt, state.Input)
	if err != nil {
		return nil, false, err
	}
	action, err := ParseAction(raw)
	if err != nil {
		return nil, false, err
	}
	switch action.Action {
	case "final":
		return action.Final, true, nil
	case "tool":
	default:
		return nil, false, ErrUnknownAction
	}

	if action.ToolName == "" {
		return nil, false, fmt.Errorf("llmtool: tool_name required")
	}
	if len(allowed) > 0 && !allowed[action.ToolName] {
		return nil, false, fmt.Errorf("%w: %s", ErrToolNotAllowed, action.ToolName)
	}
	out, err := l.Tools.Call(ctx, action.ToolName, action.ToolInput)
	tr := ToolResult{Name: action.ToolName, Input: action.ToolInput, Output: out}
	if err != nil {
		tr.Error = err.Error()
	}
	state.ToolResults = append(state.ToolResults, tr)
	return nil, false, nil
}

func allowSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = true
		}
	}
	return set
}
