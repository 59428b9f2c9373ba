package llmtool

import (
	"spanreview/internal/mcp"
	"spanreview/internal/util/jsonutil"
)

// FormatToolSpecs renders a compact JSON block of tool specs for prompt inclusion.
func FormatToolSpecs(tools []mcp.ToolSpec) string {
	if tools == nil {
		tools = []mcp.ToolSpec{}
	}
	return encodeCompact(tools)
}

// FormatToolResults renders tool results as a JSON block.
func FormatToolResults(results []ToolResult) string {
	if results == nil {
		results = []ToolResult{}
	}
	return encodeCompact(results)
}

func encodeCompact(v any) string {
	b, _ := jsonutil.MarshalNoEscape(v)
	return string(b) + "\n"
}
