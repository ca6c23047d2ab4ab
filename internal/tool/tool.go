// Package tool defines the Tool half of the Component Registries (spec
// §4.2, C2) plus the stateless execution contract tools implement.
package tool

import (
	"context"
	"fmt"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/registry"
)

// Result is a single tool call's outcome (spec §4.6: "a step result is
// {ok, data|error}").
type Result struct {
	OK    bool
	Data  map[string]any
	Error error
}

// Tool is stateless between calls (spec §3: ToolDescriptor).
type Tool interface {
	// Execute runs action with resolved params against ctx.
	Execute(ctx context.Context, action string, params map[string]any) (Result, error)
}

// Factory constructs a Tool implementation from its descriptor, keyed by
// ToolConfig.Category (mirrors agent.Factory's class-based dispatch).
type Factory func(cfg *config.ToolConfig) (Tool, error)

// Instance binds a descriptor to its constructed Tool.
type Instance struct {
	Config *config.ToolConfig
	Impl   Tool
}

// Registry holds every configured tool instance, keyed by id.
type Registry struct {
	reg *registry.Registry[*Instance]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{reg: registry.New[*Instance]()}
}

// Build constructs one Instance per enabled ToolConfig, registering load
// failures rather than aborting (spec §4.2).
func (r *Registry) Build(cfgs map[string]*config.ToolConfig, factories map[string]Factory) {
	for id, cfg := range cfgs {
		if cfg == nil || !config.EnabledOrDefault(cfg.Enabled) {
			continue
		}
		factory, ok := factories[cfg.Category]
		if !ok {
			r.reg.RegisterFailed(id, fmt.Errorf("no factory registered for tool category %q", cfg.Category))
			continue
		}
		impl, err := factory(cfg)
		if err != nil {
			r.reg.RegisterFailed(id, err)
			continue
		}
		if err := r.reg.Register(id, &Instance{Config: cfg, Impl: impl}); err != nil {
			r.reg.RegisterFailed(id, err)
		}
	}
}

// Get returns the enabled tool instance for id.
func (r *Registry) Get(id string) (*Instance, bool) { return r.reg.Get(id) }

// List returns every enabled tool instance.
func (r *Registry) List() []*Instance { return r.reg.List(registry.Filter{EnabledOnly: true}) }

// Size returns the total registered tool count (enabled and disabled).
func (r *Registry) Size() int { return r.reg.Size() }

func (r *Registry) Enable(id string) error          { return r.reg.Enable(id) }
func (r *Registry) Disable(id string) error         { return r.reg.Disable(id) }
func (r *Registry) LoadFailures() map[string]error  { return r.reg.LoadFailures() }

// Execute resolves the tool for id and runs action against it. Returns
// an error if the tool is missing/disabled; a successful call can still
// report Result.OK=false for a tool-level failure.
func (r *Registry) Execute(ctx context.Context, id, action string, params map[string]any) (Result, error) {
	inst, ok := r.reg.Get(id)
	if !ok {
		return Result{}, fmt.Errorf("tool %q not found or disabled", id)
	}

	resolved, err := ValidateParams(id, paramsFor(inst.Config, action), params)
	if err != nil {
		return Result{}, err
	}

	return inst.Impl.Execute(ctx, action, resolved)
}
