package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

// JSONParser parses or validates a JSON document (category "data").
type JSONParser struct{}

func NewJSONParserFactory() tool.Factory {
	return func(cfg *config.ToolConfig) (tool.Tool, error) {
		return &JSONParser{}, nil
	}
}

func (j *JSONParser) Execute(_ context.Context, action string, params map[string]any) (tool.Result, error) {
	raw, ok := params["text"].(string)
	if !ok || raw == "" {
		return tool.Result{OK: false, Error: fmt.Errorf("json_parser requires a string 'text' param")}, nil
	}

	switch action {
	case "", "parse":
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return tool.Result{OK: false, Error: fmt.Errorf("invalid JSON: %w", err)}, nil
		}
		return tool.Result{OK: true, Data: map[string]any{"parsed": decoded}}, nil

	case "validate":
		var decoded any
		valid := json.Unmarshal([]byte(raw), &decoded) == nil
		return tool.Result{OK: true, Data: map[string]any{"valid": valid}}, nil

	default:
		return tool.Result{OK: false, Error: fmt.Errorf("json_parser does not support action %q", action)}, nil
	}
}
