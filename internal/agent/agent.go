// Package agent implements the Agent half of the Component Registries
// (spec §4.2, C2): agent lifecycle hooks, rolling per-instance metrics,
// and centralized tool/subagent permission enforcement.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/registry"
)

// Result is what an Agent invocation returns to the orchestrator.
type Result struct {
	Text       string
	ToolUsed   string
	Confidence float64
	Metadata   map[string]any
}

// ExecContext carries per-invocation state into an Agent's lifecycle
// hooks — the trace id for logging and the extracted params from the
// Decision Engine.
type ExecContext struct {
	context.Context
	TraceID string
	Params  map[string]any
}

// Agent is the pluggable business logic behind an AgentDescriptor. The
// source discovers agents by class name from a configuration string
// (spec §9 "Metaprogramming-style agent registration"); here that is
// replaced with an explicit factory registry (see Factory/RegisterFactory).
type Agent interface {
	// OnInit runs once, lazily, before the first Execute call. Must be
	// idempotent since a race between two concurrent first calls is
	// resolved by EnsureInit's lock, not by the hook itself.
	OnInit(ctx context.Context) error

	// Execute runs one turn of the agent against input.
	Execute(ctx ExecContext, input string) (*Result, error)

	// OnDestroy releases resources at shutdown.
	OnDestroy(ctx context.Context) error
}

// BeforeExecuteHook and AfterExecuteHook are optional hooks an Agent may
// additionally implement (spec §4.2: "beforeExecute(input, ctx) /
// afterExecute(result, ctx) around each invocation").
type BeforeExecuteHook interface {
	BeforeExecute(ctx ExecContext, input string) error
}

type AfterExecuteHook interface {
	AfterExecute(ctx ExecContext, result *Result, execErr error)
}

// Factory constructs an Agent implementation from its descriptor. The
// application binds one factory per agent "class" at startup, replacing
// the source's class-name-string dispatch (spec §9).
type Factory func(cfg *config.AgentConfig) (Agent, error)

// Metrics are the rolling per-instance counters spec §4.2 requires.
type Metrics struct {
	Total            int64
	Successful       int64
	Failed           int64
	AverageDurationMs float64
	LastDurationMs    int64
}

// Instance binds a descriptor to its constructed Agent and runtime state.
type Instance struct {
	Config *config.AgentConfig
	Impl   Agent

	mu          sync.Mutex
	initialized bool
	metrics     Metrics
}

func (i *Instance) recordOutcome(success bool, durationMs int64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.metrics.Total++
	if success {
		i.metrics.Successful++
	} else {
		i.metrics.Failed++
	}
	i.metrics.LastDurationMs = durationMs
	i.metrics.AverageDurationMs = (i.metrics.AverageDurationMs*float64(i.metrics.Total-1) + float64(durationMs)) / float64(i.metrics.Total)
}

// Snapshot returns a copy of the instance's rolling metrics.
func (i *Instance) Snapshot() Metrics {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.metrics
}

// PermissionDeniedError is returned when an agent attempts to call a
// tool or subagent outside its AllowedTools/AllowedSubagents set; the
// tool or subagent is never reached (spec §4.2).
type PermissionDeniedError struct {
	AgentID string
	Kind    string // "tool" | "subagent"
	TargetID string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("agent %q is not permitted to call %s %q", e.AgentID, e.Kind, e.TargetID)
}

// Registry holds every configured agent instance, keyed by id.
type Registry struct {
	reg *registry.Registry[*Instance]
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{reg: registry.New[*Instance]()}
}

// Build constructs one Instance per enabled AgentConfig using the given
// factory lookup (keyed by AgentConfig.Class), registering load failures
// rather than aborting (spec §4.2: "one bad component must not block
// boot").
func (r *Registry) Build(cfgs map[string]*config.AgentConfig, factories map[string]Factory) {
	for id, cfg := range cfgs {
		if cfg == nil || !config.EnabledOrDefault(cfg.Enabled) {
			continue
		}
		factory, ok := factories[cfg.Class]
		if !ok {
			r.reg.RegisterFailed(id, fmt.Errorf("no factory registered for agent class %q", cfg.Class))
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

// Get returns the enabled agent instance for id.
func (r *Registry) Get(id string) (*Instance, bool) {
	return r.reg.Get(id)
}

// List returns every enabled agent instance.
func (r *Registry) List() []*Instance {
	return r.reg.List(registry.Filter{EnabledOnly: true})
}

// Size returns the total registered agent count (enabled and disabled).
func (r *Registry) Size() int { return r.reg.Size() }

// Enable/Disable/LoadFailures expose the underlying registry's lifecycle
// controls directly.
func (r *Registry) Enable(id string) error  { return r.reg.Enable(id) }
func (r *Registry) Disable(id string) error { return r.reg.Disable(id) }
func (r *Registry) LoadFailures() map[string]error { return r.reg.LoadFailures() }

// EnsureInit runs the agent's OnInit hook exactly once, idempotently,
// before first use (spec §4.2).
func (r *Registry) EnsureInit(ctx context.Context, id string) error {
	inst, ok := r.reg.Get(id)
	if !ok {
		return fmt.Errorf("agent %q not found or disabled", id)
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.initialized {
		return nil
	}
	if err := inst.Impl.OnInit(ctx); err != nil {
		return fmt.Errorf("agent %q onInit failed: %w", id, err)
	}
	inst.initialized = true
	return nil
}

// CheckToolPermission enforces spec §4.2's centralized permission path:
// an empty AllowedTools set means "all tools"; otherwise toolID must be
// a member.
func (r *Registry) CheckToolPermission(agentID, toolID string) error {
	inst, ok := r.reg.Get(agentID)
	if !ok {
		return fmt.Errorf("agent %q not found or disabled", agentID)
	}
	if len(inst.Config.AllowedTools) == 0 {
		return nil
	}
	for _, allowed := range inst.Config.AllowedTools {
		if allowed == toolID {
			return nil
		}
	}
	return &PermissionDeniedError{AgentID: agentID, Kind: "tool", TargetID: toolID}
}

// CheckSubagentPermission is CheckToolPermission's analogue for
// AllowedSubagents.
func (r *Registry) CheckSubagentPermission(agentID, subagentID string) error {
	inst, ok := r.reg.Get(agentID)
	if !ok {
		return fmt.Errorf("agent %q not found or disabled", agentID)
	}
	if len(inst.Config.AllowedSubagents) == 0 {
		return nil
	}
	for _, allowed := range inst.Config.AllowedSubagents {
		if allowed == subagentID {
			return nil
		}
	}
	return &PermissionDeniedError{AgentID: agentID, Kind: "subagent", TargetID: subagentID}
}

// Execute runs the full lifecycle around one agent invocation: lazy
// OnInit, optional BeforeExecute/AfterExecute hooks, and metrics
// recording — mirroring spec §4.2's hook ordering.
func (r *Registry) Execute(ctx ExecContext, agentID, input string) (*Result, error) {
	inst, ok := r.reg.Get(agentID)
	if !ok {
		return nil, fmt.Errorf("agent %q not found or disabled", agentID)
	}
	if err := r.EnsureInit(ctx, agentID); err != nil {
		return nil, err
	}

	if hook, ok := inst.Impl.(BeforeExecuteHook); ok {
		if err := hook.BeforeExecute(ctx, input); err != nil {
			return nil, fmt.Errorf("agent %q beforeExecute failed: %w", agentID, err)
		}
	}

	start := time.Now()
	result, err := inst.Impl.Execute(ctx, input)
	durationMs := time.Since(start).Milliseconds()
	inst.recordOutcome(err == nil, durationMs)

	if hook, ok := inst.Impl.(AfterExecuteHook); ok {
		hook.AfterExecute(ctx, result, err)
	}
	return result, err
}

// DestroyAll invokes OnDestroy on every registered agent, collecting but
// not stopping on individual errors (shutdown is best-effort).
func (r *Registry) DestroyAll(ctx context.Context) []error {
	var errs []error
	for _, inst := range r.reg.List(registry.Filter{}) {
		if inst == nil || inst.Impl == nil {
			continue
		}
		if err := inst.Impl.OnDestroy(ctx); err != nil {
			errs = append(errs, fmt.Errorf("agent %q onDestroy: %w", inst.Config.ID, err))
		}
	}
	return errs
}
