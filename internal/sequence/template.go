package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// TemplateError is returned when a placeholder cannot be resolved against
// the step context (spec §4.6 step 1).
type TemplateError struct {
	Placeholder string
	Reason      string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error in %q: %s", e.Placeholder, e.Reason)
}

// resolveParams walks a Step's raw string params, substituting every
// ${...} placeholder against ctx. Literal "${" is escaped as "$${"
// (spec §4.6 "Template semantics").
func resolveParams(raw map[string]string, ctx *StepContext) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		resolved, err := resolveString(value, ctx)
		if err != nil {
			return nil, err
		}
		out[key] = resolved
	}
	return out, nil
}

// resolveString substitutes every placeholder in s. If s is exactly one
// placeholder, the placeholder's native value (not its string form) is
// returned so downstream tools receive numbers/slices intact.
func resolveString(s string, ctx *StepContext) (any, error) {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") && strings.Count(s, "${") == 1 {
		path := s[2 : len(s)-1]
		return resolvePath(path, ctx)
	}

	var b strings.Builder
	i := 0
	for i < len(s) {
		if strings.HasPrefix(s[i:], "$${") {
			b.WriteByte('$')
			b.WriteByte('{')
			i += 3
			continue
		}
		if strings.HasPrefix(s[i:], "${") {
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return nil, &TemplateError{Placeholder: s[i:], Reason: "unterminated placeholder"}
			}
			path := s[i+2 : i+end]
			val, err := resolvePath(path, ctx)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, "%v", val)
			i += end + 1
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), nil
}

// resolvePath resolves a dotted path with optional array indices, e.g.
// "input.x" or "step2.x.y[0]" (spec §4.6 "Template semantics").
func resolvePath(path string, ctx *StepContext) (any, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, &TemplateError{Placeholder: path, Reason: "empty path"}
	}

	root := segments[0].key
	var current any
	switch {
	case root == "input":
		current = ctx.Input
	case strings.HasPrefix(root, "step"):
		stepResult, ok := ctx.Steps[root]
		if !ok {
			return nil, &TemplateError{Placeholder: path, Reason: fmt.Sprintf("no result recorded for %q", root)}
		}
		current = stepResult
	default:
		return nil, &TemplateError{Placeholder: path, Reason: fmt.Sprintf("unknown root %q (must be input or stepN)", root)}
	}
	if segments[0].index != nil {
		var err error
		current, err = indexInto(current, *segments[0].index, path)
		if err != nil {
			return nil, err
		}
	}

	for _, seg := range segments[1:] {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, &TemplateError{Placeholder: path, Reason: fmt.Sprintf("%q is not an object", seg.key)}
		}
		v, ok := m[seg.key]
		if !ok {
			return nil, &TemplateError{Placeholder: path, Reason: fmt.Sprintf("missing key %q", seg.key)}
		}
		current = v
		if seg.index != nil {
			var err error
			current, err = indexInto(current, *seg.index, path)
			if err != nil {
				return nil, err
			}
		}
	}
	return current, nil
}

type pathSegment struct {
	key   string
	index *int
}

// splitPath splits "a.b.c[0]" into [{a nil} {b nil} {c 0}].
func splitPath(path string) []pathSegment {
	parts := strings.Split(path, ".")
	out := make([]pathSegment, 0, len(parts))
	for _, p := range parts {
		if idx := strings.IndexByte(p, '['); idx >= 0 && strings.HasSuffix(p, "]") {
			key := p[:idx]
			n, err := strconv.Atoi(p[idx+1 : len(p)-1])
			if err != nil {
				out = append(out, pathSegment{key: p})
				continue
			}
			out = append(out, pathSegment{key: key, index: &n})
			continue
		}
		out = append(out, pathSegment{key: p})
	}
	return out
}

func indexInto(v any, idx int, path string) (any, error) {
	slice, ok := v.([]any)
	if !ok {
		return nil, &TemplateError{Placeholder: path, Reason: "index applied to a non-array value"}
	}
	if idx < 0 || idx >= len(slice) {
		return nil, &TemplateError{Placeholder: path, Reason: fmt.Sprintf("index %d out of range", idx)}
	}
	return slice[idx], nil
}
