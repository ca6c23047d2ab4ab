package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate schema-checks every section and then cross-reference-validates
// the document as a whole (spec §4.1 steps 3-5).
func (c *Config) Validate() error {
	var errs []error

	for id, p := range c.Providers {
		if p == nil {
			continue
		}
		if p.Type != "local" && p.Type != "cloud" {
			errs = append(errs, &SchemaError{Path: "providers." + id + ".type", Reason: "must be 'local' or 'cloud'"})
		}
	}

	for id, t := range c.Tools {
		if t == nil {
			continue
		}
		for pname, spec := range t.Parameters {
			if spec.Type == "" {
				errs = append(errs, &SchemaError{Path: "tools." + id + ".parameters." + pname + ".type", Reason: "type is required"})
			}
		}
	}

	for id, s := range c.ToolSequences {
		if s == nil {
			continue
		}
		switch s.ErrorStrategy {
		case "fail_fast", "continue_on_error", "retry_all":
		default:
			errs = append(errs, &SchemaError{Path: "tool_sequences." + id + ".error_strategy", Reason: "must be one of fail_fast, continue_on_error, retry_all"})
		}
		for _, step := range s.Steps {
			if (step.ToolID == "") == (step.MCPID == "") {
				errs = append(errs, fmt.Errorf("tool_sequences.%s step %d: exactly one of tool_id or mcp_id must be set", id, step.Order))
			}
		}
	}

	if refErr := c.validateReferences(); refErr != nil {
		errs = append(errs, refErr)
	}

	if cycleErr := c.detectProviderFallbackCycle(); cycleErr != nil {
		errs = append(errs, cycleErr)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n%w", errors.Join(errs...))
	}
	return nil
}

// validateReferences enforces the invariant that every id reference
// resolves to an existing, enabled component (spec §3 invariants).
func (c *Config) validateReferences() error {
	var errs []string

	enabledTool := func(id string) bool {
		t, ok := c.Tools[id]
		return ok && EnabledOrDefault(t.Enabled)
	}
	enabledProvider := func(id string) bool {
		p, ok := c.Providers[id]
		return ok && EnabledOrDefault(p.Enabled)
	}
	enabledAgent := func(id string) bool {
		a, ok := c.Agents[id]
		return ok && EnabledOrDefault(a.Enabled)
	}

	for agentID, agent := range c.Agents {
		if agent == nil || !EnabledOrDefault(agent.Enabled) {
			continue
		}
		for _, toolID := range agent.AllowedTools {
			if !enabledTool(toolID) {
				errs = append(errs, (&DanglingReferenceError{From: fmt.Sprintf("agent %q", agentID), To: toolID}).Error())
			}
		}
		for _, subID := range agent.AllowedSubagents {
			if !enabledAgent(subID) {
				errs = append(errs, (&DanglingReferenceError{From: fmt.Sprintf("agent %q", agentID), To: subID}).Error())
			}
		}
	}

	for seqID, seq := range c.ToolSequences {
		if seq == nil {
			continue
		}
		for _, step := range seq.Steps {
			if step.ToolID != "" && !enabledTool(step.ToolID) {
				errs = append(errs, (&DanglingReferenceError{From: fmt.Sprintf("tool_sequences %q step %d", seqID, step.Order), To: step.ToolID}).Error())
			}
			if step.MCPID != "" && !enabledProvider(step.MCPID) {
				errs = append(errs, (&DanglingReferenceError{From: fmt.Sprintf("tool_sequences %q step %d", seqID, step.Order), To: step.MCPID}).Error())
			}
			if step.FallbackMCPID != "" && !enabledProvider(step.FallbackMCPID) {
				errs = append(errs, (&DanglingReferenceError{From: fmt.Sprintf("tool_sequences %q step %d fallback", seqID, step.Order), To: step.FallbackMCPID}).Error())
			}
		}
	}

	for id, p := range c.Providers {
		if p == nil || p.FallbackProviderID == "" {
			continue
		}
		if !enabledProvider(p.FallbackProviderID) {
			errs = append(errs, (&DanglingReferenceError{From: fmt.Sprintf("provider %q fallback_provider_id", id), To: p.FallbackProviderID}).Error())
		}
	}

	for id, kb := range c.KnowledgeBases {
		if kb == nil || kb.EmbeddingModel == "" {
			continue
		}
		if !enabledProvider(kb.EmbeddingModel) {
			errs = append(errs, (&DanglingReferenceError{From: fmt.Sprintf("knowledge_base %q embedding_model", id), To: kb.EmbeddingModel}).Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("reference errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// detectProviderFallbackCycle runs a depth-first traversal over the
// provider fallback graph and rejects any cycle with a path trace
// (spec §4.1 step 5).
func (c *Config) detectProviderFallbackCycle() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(c.Providers))
	for id := range c.Providers {
		color[id] = white
	}

	var path []string
	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		path = append(path, id)

		p, ok := c.Providers[id]
		if ok && p.FallbackProviderID != "" {
			next := p.FallbackProviderID
			switch color[next] {
			case gray:
				return &CycleError{Path: append(append([]string{}, path...), next)}
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for id := range c.Providers {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
