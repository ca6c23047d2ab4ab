// Package sequence implements the Tool Sequence Executor (spec §4.6, C6):
// an ordered, DAG-free step runner with templated params and per-step
// error policy.
package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

// StepContext is the template namespace threaded through a run: seeded
// with ${input.*} and extended after each step with ${stepN.*}.
type StepContext struct {
	Input map[string]any
	Steps map[string]any // "step1" -> that step's result data
}

// StepOutcome is one step's recorded result (spec §4.6: "a step result is
// {ok, data|error}").
type StepOutcome struct {
	Order   int
	OK      bool
	Data    map[string]any
	Err     error
	Skipped bool
	Retries int
}

// RunResult is the outcome of one sequence execution.
type RunResult struct {
	Outcomes  []StepOutcome
	StoppedAt int // 0 if the sequence ran to completion
}

// ErrSequenceCircuitOpen is returned when a sequence-level breaker is open
// (spec §4.6 "Circuit breaker at sequence level").
var ErrSequenceCircuitOpen = fmt.Errorf("tool sequence circuit is open")

// Executor runs ToolSequences against the tool and provider registries.
type Executor struct {
	tools    *tool.Registry
	cascade  *provider.Cascade
	logger   *logging.Logger
	breakers map[string]*sequenceBreaker
	mu       sync.Mutex
}

// NewExecutor builds an Executor bound to the core's tool registry and
// provider cascade.
func NewExecutor(tools *tool.Registry, cascade *provider.Cascade, logger *logging.Logger) *Executor {
	return &Executor{
		tools:    tools,
		cascade:  cascade,
		logger:   logger,
		breakers: make(map[string]*sequenceBreaker),
	}
}

// sequenceBreaker is a simple failure-count-within-window breaker,
// independent of any per-provider breaker (spec §4.6).
type sequenceBreaker struct {
	mu          sync.Mutex
	cfg         config.SequenceCircuitBreakerConfig
	failures    int
	windowStart time.Time
	openedAt    time.Time
	open        bool
}

func (b *sequenceBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if time.Since(b.openedAt) >= time.Duration(b.cfg.TimeoutMs)*time.Millisecond {
		b.open = false
		b.failures = 0
		return true
	}
	return false
}

func (b *sequenceBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	window := time.Duration(b.cfg.WindowSize) * time.Second
	if window <= 0 || time.Since(b.windowStart) > window {
		b.windowStart = time.Now()
		b.failures = 0
	}
	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.open = true
		b.openedAt = time.Now()
	}
}

func (b *sequenceBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

func (e *Executor) breakerFor(id string, cfg *config.SequenceCircuitBreakerConfig) *sequenceBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.breakers[id]
	if !ok {
		b = &sequenceBreaker{cfg: *cfg, windowStart: time.Now()}
		e.breakers[id] = b
	}
	return b
}

// Run executes seqID's steps against input, seeding ${input.*}.
func (e *Executor) Run(ctx context.Context, seqID string, seq *config.ToolSequenceConfig, input map[string]any, traceID string) (*RunResult, error) {
	var breaker *sequenceBreaker
	if seq.CircuitBreaker != nil && seq.CircuitBreaker.Enabled {
		breaker = e.breakerFor(seqID, seq.CircuitBreaker)
		if !breaker.allow() {
			return nil, ErrSequenceCircuitOpen
		}
	}

	stepCtx := &StepContext{Input: input, Steps: make(map[string]any)}
	result := &RunResult{}

	sequenceFailed := false
	for _, step := range seq.Steps {
		outcome := e.runStepWithRetry(ctx, step, stepCtx, seq.Retry, traceID)

		if outcome.OK {
			switch handleOnSuccess(step.OnSuccess) {
			case actionSkip:
				outcome.Skipped = true
			case actionStop:
				result.Outcomes = append(result.Outcomes, outcome)
				stepCtx.Steps[fmt.Sprintf("step%d", step.Order)] = outcome.Data
				result.StoppedAt = step.Order
				return result, nil
			}
		}

		result.Outcomes = append(result.Outcomes, outcome)
		if !outcome.Skipped {
			stepCtx.Steps[fmt.Sprintf("step%d", step.Order)] = outcome.Data
		}

		if outcome.OK {
			continue
		}

		sequenceFailed = true
		switch handleOnError(step.OnError) {
		case actionStop:
			result.StoppedAt = step.Order
			if breaker != nil {
				breaker.recordFailure()
			}
			return result, nil
		case actionContinue, actionLogWarning:
			continue
		}
	}

	if breaker != nil {
		if sequenceFailed {
			breaker.recordFailure()
		} else {
			breaker.recordSuccess()
		}
	}
	return result, nil
}

type controlAction int

const (
	actionContinue controlAction = iota
	actionStop
	actionLogWarning
	actionSkip
)

func handleOnSuccess(policy string) controlAction {
	switch policy {
	case "stop":
		return actionStop
	case "skip":
		return actionSkip
	default:
		return actionContinue
	}
}

func handleOnError(policy string) controlAction {
	switch policy {
	case "stop":
		return actionStop
	case "log_warning":
		return actionLogWarning
	case "fallback":
		return actionContinue // fallback already substituted the mcp target before dispatch
	default:
		return actionContinue
	}
}

// runStepWithRetry executes one step, retrying per the sequence's retry
// policy when the step would otherwise resolve to stop/log_warning
// (spec §4.6 "Retry").
func (e *Executor) runStepWithRetry(ctx context.Context, step config.StepConfig, stepCtx *StepContext, retry config.RetryConfig, traceID string) StepOutcome {
	outcome := e.runStep(ctx, step, stepCtx, traceID)
	if outcome.OK || !retry.Enabled {
		return outcome
	}
	willStopOrWarn := step.OnError == "stop" || step.OnError == "log_warning"
	if !willStopOrWarn {
		return outcome
	}

	backoffMs := retry.BackoffMs
	if backoffMs <= 0 {
		backoffMs = 500
	}

	for attempt := 1; attempt <= retry.MaxRetries; attempt++ {
		wait := time.Duration(backoffMs) * time.Millisecond
		if retry.ExponentialBackoff {
			wait = time.Duration(backoffMs) * time.Millisecond * time.Duration(1<<uint(attempt))
			if cap := 30 * time.Second; wait > cap {
				wait = cap
			}
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			outcome.Err = ctx.Err()
			return outcome
		}

		outcome = e.runStep(ctx, step, stepCtx, traceID)
		outcome.Retries = attempt
		if outcome.OK {
			return outcome
		}
	}
	return outcome
}

// runStep resolves params, dispatches to a tool or a specific provider,
// and records the result (spec §4.6 "Step execution").
func (e *Executor) runStep(ctx context.Context, step config.StepConfig, stepCtx *StepContext, traceID string) StepOutcome {
	params, err := resolveParams(step.Params, stepCtx)
	if err != nil {
		e.logger.Log(logging.LevelError, logging.CategoryTool, traceID, "template resolution failed",
			map[string]any{"step": step.Order, "error": err.Error()})
		return StepOutcome{Order: step.Order, OK: false, Err: err}
	}

	if step.ToolID != "" {
		res, err := e.tools.Execute(ctx, step.ToolID, step.Action, params)
		if err != nil {
			return StepOutcome{Order: step.Order, OK: false, Err: err}
		}
		if !res.OK {
			return StepOutcome{Order: step.Order, OK: false, Err: res.Error, Data: res.Data}
		}
		return StepOutcome{Order: step.Order, OK: true, Data: res.Data}
	}

	if step.MCPID != "" {
		return e.runMCPStep(ctx, step, params, traceID)
	}

	return StepOutcome{Order: step.Order, OK: false, Err: fmt.Errorf("step %d declares neither tool_id nor mcp_id", step.Order)}
}

func (e *Executor) runMCPStep(ctx context.Context, step config.StepConfig, params map[string]any, traceID string) StepOutcome {
	prompt := fmt.Sprintf("%v", params["prompt"])
	result, err := e.cascade.CompleteOne(ctx, step.MCPID, &provider.CompletionRequest{
		Messages: []provider.Message{{Role: "user", Content: prompt}},
	}, traceID)

	if err != nil && step.OnError == "fallback" && step.FallbackMCPID != "" {
		result, err = e.cascade.CompleteOne(ctx, step.FallbackMCPID, &provider.CompletionRequest{
			Messages: []provider.Message{{Role: "user", Content: prompt}},
		}, traceID)
	}

	if err != nil {
		return StepOutcome{Order: step.Order, OK: false, Err: err}
	}
	return StepOutcome{Order: step.Order, OK: true, Data: map[string]any{"text": result.Text, "provider": result.Provider}}
}
