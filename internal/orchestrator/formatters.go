package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

// formatToolResult turns a tool.Result into a user-facing string via a
// small set of known-tool formatters; unknown tools fall back to a JSON
// rendering of the result data (spec §4.7 step 4).
func formatToolResult(toolID string, result tool.Result) string {
	if !result.OK {
		if result.Error != nil {
			return fmt.Sprintf("Tool %q failed: %s", toolID, result.Error.Error())
		}
		return fmt.Sprintf("Tool %q failed.", toolID)
	}

	switch toolID {
	case "soma", "subtracao", "multiplicacao", "divisao":
		if v, ok := result.Data["result"]; ok {
			return fmt.Sprintf("%v", v)
		}
	case "file_reader":
		if v, ok := result.Data["content"]; ok {
			return fmt.Sprintf("%v", v)
		}
	case "json_parser":
		if v, ok := result.Data["valid"]; ok {
			if valid, _ := v.(bool); valid {
				return "The JSON is valid."
			}
			return "The JSON is invalid."
		}
		if v, ok := result.Data["parsed"]; ok {
			b, err := json.MarshalIndent(v, "", "  ")
			if err == nil {
				return string(b)
			}
		}
	}

	b, err := json.Marshal(result.Data)
	if err != nil {
		return fmt.Sprintf("%v", result.Data)
	}
	return string(b)
}
