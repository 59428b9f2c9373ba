package llmtool

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"spanreview/internal/mcp"
	"spanreview/internal/util/jsonutil"
)

// PromptField describes a single output field in a simple schema.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// StructuredPromptSpec defines the sections for a structured prompt.
type StructuredPromptSpec struct {
	Purpose      string
	Background   string
	Task         string
	OutputFields []PromptField
	Constraints  []string
	Rules        []string
	OutputFormat string
}

// StructuredPromptBuilder renders a structured prompt including tool specs
// and the results of earlier tool calls.
func StructuredPromptBuilder(spec StructuredPromptSpec) PromptBuilder {
	return func(_ context.Context, state *ToolState, tools []mcp.ToolSpec) (string, error) {
		if strings.TrimSpace(spec.Purpose) == "" {
			return "", fmt.Errorf("llmtool: purpose is empty")
		}
		if len(spec.OutputFields) == 0 {
			return "", fmt.Errorf("llmtool: output fields are empty")
		}
		var input any
		if state != nil {
			input = state.Input
		}
		inputJSON, err := formatAnyJSON(input)
		if err != nil {
			return "", fmt.Errorf("llmtool: encode input: %w", err)
		}

		var buf bytes.Buffer
		writeSection(&buf, "PURPOSE", spec.Purpose)
		writeSection(&buf, "BACKGROUND", spec.Background)
		writeSection(&buf, "TASK", spec.Task)
		writeSection(&buf, "INPUT", inputJSON)
		writeSection(&buf, "FINAL_OUTPUT", formatFields(spec.OutputFields))
		writeSection(&buf, "CONSTRAINTS", formatList(spec.Constraints))
		writeSection(&buf, "RULES", formatList(spec.Rules))
		writeSection(&buf, "OUTPUT_FORMAT", spec.OutputFormat)
		writeSection(&buf, "TOOLS", FormatToolSpecs(tools))
		if state != nil && len(state.ToolResults) > 0 {
			writeSection(&buf, "TOOL_RESULTS", FormatToolResults(state.ToolResults))
		}
		return strings.TrimSpace(buf.String()) + "\n", nil
	}
}

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints/rules to a structured prompt spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var merged PromptPreset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	spec.Constraints = append(merged.Constraints, spec.Constraints...)
	spec.Rules = append(merged.Rules, spec.Rules...)
	return spec
}

// PresetToolEnvelope describes the action envelope ParseAction expects.
func PresetToolEnvelope() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Return strict JSON only. No markdown, comments, or trailing commas.",
			`To call a tool respond with {"action":"tool","tool_name":"<name>","tool_input":{...}}.`,
			`When done respond with {"action":"final","final":{...}} using the FINAL_OUTPUT fields.`,
			"Call exactly one tool per response.",
		},
	}
}

// PresetVerbatimQuotes keeps quoted code exact.
func PresetVerbatimQuotes() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Quotes must be copied verbatim from the code, without the line number prefixes.",
			"Do not invent line numbers or code that is not present in the input.",
		},
		Rules: []string{
			"If a tool result reports an error, fix the start line or quote and call the tool again.",
		},
	}
}

func formatAnyJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := jsonutil.MarshalNoEscapeIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatFields(fields []PromptField) string {
	var buf strings.Builder
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		if f.Description != "" {
			fmt.Fprintf(&buf, "- %s (%s, %s): %s\n", name, f.Type, req, f.Description)
		} else {
			fmt.Fprintf(&buf, "- %s (%s, %s)\n", name, f.Type, req)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatList(items []string) string {
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
