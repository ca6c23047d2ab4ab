package tool

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// paramSchema translates a ToolDescriptor's typed parameter map (spec §3:
// "typed parameter schema (name -> {type, required, default, enum?, min?,
// max?})") into a JSON Schema document.
func paramSchema(params map[string]config.ParamSpec) map[string]any {
	properties := make(map[string]any, len(params))
	var required []string
	for name, spec := range params {
		prop := map[string]any{}
		if spec.Type != "" {
			prop["type"] = spec.Type
		}
		if len(spec.Enum) > 0 {
			enumVals := make([]any, len(spec.Enum))
			for i, e := range spec.Enum {
				enumVals[i] = e
			}
			prop["enum"] = enumVals
		}
		if spec.Min != nil {
			prop["minimum"] = *spec.Min
		}
		if spec.Max != nil {
			prop["maximum"] = *spec.Max
		}
		properties[name] = prop
		if spec.Required {
			required = append(required, name)
		}
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ValidateParams applies each parameter's default, then validates the
// merged values against the tool's declared schema before the tool ever
// sees them (spec §3; an invalid call is a validation error, not a tool
// exception, per spec §7's taxonomy).
func ValidateParams(toolID string, params map[string]config.ParamSpec, values map[string]any) (map[string]any, error) {
	if len(params) == 0 {
		return values, nil
	}

	merged := make(map[string]any, len(values))
	for k, v := range values {
		merged[k] = v
	}
	for name, spec := range params {
		if _, ok := merged[name]; !ok && spec.Default != nil {
			merged[name] = spec.Default
		}
	}

	doc, err := json.Marshal(paramSchema(params))
	if err != nil {
		return nil, fmt.Errorf("tool %q: encoding parameter schema: %w", toolID, err)
	}

	compiler := jsonschema.NewCompiler()
	url := "mem://" + toolID + "/params.json"
	if err := compiler.AddResource(url, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("tool %q: building parameter schema: %w", toolID, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("tool %q: compiling parameter schema: %w", toolID, err)
	}
	if err := schema.Validate(merged); err != nil {
		return nil, fmt.Errorf("tool %q: parameter validation failed: %w", toolID, err)
	}
	return merged, nil
}

// paramsFor resolves the effective ParamSpec set for action, layering the
// action's own subset over the tool's base parameters (spec §3: "optional
// named actions, each with its own param subset").
func paramsFor(cfg *config.ToolConfig, action string) map[string]config.ParamSpec {
	if action == "" {
		return cfg.Parameters
	}
	actionSpec, ok := cfg.Actions[action]
	if !ok || len(actionSpec.Parameters) == 0 {
		return cfg.Parameters
	}
	merged := make(map[string]config.ParamSpec, len(cfg.Parameters)+len(actionSpec.Parameters))
	for k, v := range cfg.Parameters {
		merged[k] = v
	}
	for k, v := range actionSpec.Parameters {
		merged[k] = v
	}
	return merged
}
