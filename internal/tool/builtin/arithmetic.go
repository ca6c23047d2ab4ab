// Package builtin implements the illustrative tools referenced by the
// Decision Engine's seed rules (spec §4.7): arithmetic, file reading,
// and JSON parsing/validation.
package builtin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

// Arithmetic implements the four basic operations, one tool instance per
// operation (e.g. "soma" for addition, matching the localized naming
// spec §8 scenario 2 expects).
type Arithmetic struct {
	op string // "add" | "subtract" | "multiply" | "divide"
}

// NewArithmeticFactory returns a tool.Factory that builds an Arithmetic
// tool performing op; a non-empty action passed to Execute overrides op
// for that call. The ToolConfig is not consulted.
func NewArithmeticFactory(op string) tool.Factory {
	return func(cfg *config.ToolConfig) (tool.Tool, error) {
		return &Arithmetic{op: op}, nil
	}
}

func (a *Arithmetic) Execute(_ context.Context, action string, params map[string]any) (tool.Result, error) {
	op := a.op
	if action != "" {
		op = action
	}

	x, xok := asFloat(params["x"])
	y, yok := asFloat(params["y"])
	if !xok || !yok {
		return tool.Result{OK: false, Error: fmt.Errorf("arithmetic tool requires numeric params 'x' and 'y'")}, nil
	}

	var result float64
	switch op {
	case "add":
		result = x + y
	case "subtract":
		result = x - y
	case "multiply":
		result = x * y
	case "divide":
		if y == 0 {
			return tool.Result{OK: false, Error: fmt.Errorf("division by zero")}, nil
		}
		result = x / y
	default:
		return tool.Result{OK: false, Error: fmt.Errorf("unsupported arithmetic operation %q", op)}, nil
	}

	return tool.Result{OK: true, Data: map[string]any{"result": result}}, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
