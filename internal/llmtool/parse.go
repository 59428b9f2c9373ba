package llmtool

import (
	"encoding/json"
	"fmt"
	"strings"

	"spanreview/internal/util/jsonutil"
)

// ActionEnvelope describes the tool-loop action response from the LLM.
type ActionEnvelope struct {
	Action    string          `json:"action,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	Final     json.RawMessage `json:"final,omitempty"`
}

// ParseAction parses the LLM response into an action envelope. Responses
// wrapped in a markdown code fence are unwrapped first.
func ParseAction(raw json.RawMessage) (ActionEnvelope, error) {
	raw = json.RawMessage(stripFence(string(raw)))
	var env ActionEnvelope
	if err := jsonutil.UnmarshalFlex(raw, &env); err != nil {
		return ActionEnvelope{}, fmt.Errorf("llmtool: decode action: %w", err)
	}
	// No envelope fields at all: the model answered directly.
	if env.Action == "" && env.ToolName == "" && len(env.Final) == 0 {
		env.Action = "final"
		env.Final = raw
	}

	if env.Action == "" {
		switch {
		case len(env.Final) > 0:
			env.Action = "final"
		case env.ToolName != "" || len(env.ToolInput) > 0:
			env.Action = "tool"
		}
	}
	switch env.Action {
	case "final", "tool":
		return env, nil
	default:
		return ActionEnvelope{}, fmt.Errorf("%w %q", ErrUnknownAction, env.Action)
	}
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
