package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
)

// candidate pairs a constructed Provider with its breaker and per-call
// deadline, in cascade order.
type candidate struct {
	id       string
	impl     Provider
	breaker  *Breaker
	timeout  time.Duration
	attempts int // retries within this provider before advancing, spec §4.4
}

// AttemptFailure records one candidate's outcome for the exhaustion error.
type AttemptFailure struct {
	ProviderID string
	ModelID    string
	Reason     string
	DurationMs int64
}

// AllProvidersExhaustedError is returned when every candidate in the
// cascade failed (spec §4.4 step 5).
type AllProvidersExhaustedError struct {
	Attempts []AttemptFailure
}

func (e *AllProvidersExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString("all providers exhausted: ")
	for i, a := range e.Attempts {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s(%s): %s", a.ProviderID, a.ModelID, a.Reason)
	}
	return b.String()
}

// Cascade walks an ordered list of providers, gating each on its circuit
// breaker and returning on the first success (spec §4.4).
type Cascade struct {
	candidates []candidate
	logger     *logging.Logger
}

// NewCascade builds a Cascade from the enabled provider configs, ordered:
// the provider marked primary first, then the remaining remote providers,
// then local providers last (see orderCascade for order within a group).
func NewCascade(cfgs map[string]*config.ProviderConfig, factories map[string]Factory, logger *logging.Logger) (*Cascade, error) {
	ordered := orderCascade(cfgs)

	c := &Cascade{logger: logger}
	for _, cfg := range ordered {
		factory, ok := factories[cfg.Type]
		if !ok {
			return nil, fmt.Errorf("no provider factory registered for type %q (provider %q)", cfg.Type, cfg.ID)
		}
		impl, err := factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("constructing provider %q: %w", cfg.ID, err)
		}
		c.candidates = append(c.candidates, candidate{
			id:      cfg.ID,
			impl:    impl,
			breaker: NewBreaker(cfg.CircuitBreaker),
			timeout: deadline(cfg),
		})
	}
	return c, nil
}

// orderCascade sorts enabled provider configs: primary first, then
// remaining non-"local" providers, then "local" providers last. Within
// each group the order is Go's map iteration order, which is not stable
// from one call to the next and does not follow the document's order.
func orderCascade(cfgs map[string]*config.ProviderConfig) []*config.ProviderConfig {
	var primary *config.ProviderConfig
	var cloud, local []*config.ProviderConfig

	for _, cfg := range cfgs {
		if cfg == nil || !config.EnabledOrDefault(cfg.Enabled) {
			continue
		}
		if cfg.Primary && primary == nil {
			primary = cfg
			continue
		}
		if cfg.Type == "local" {
			local = append(local, cfg)
		} else {
			cloud = append(cloud, cfg)
		}
	}

	out := make([]*config.ProviderConfig, 0, len(cfgs))
	if primary != nil {
		out = append(out, primary)
	}
	out = append(out, cloud...)
	out = append(out, local...)
	return out
}

// Status is one candidate's introspection snapshot (spec §6 GET /health,
// GET /providers).
type Status struct {
	ProviderID string `json:"provider_id"`
	State      string `json:"state"`
}

// Statuses reports every candidate's breaker state in cascade order.
func (c *Cascade) Statuses() []Status {
	out := make([]Status, 0, len(c.candidates))
	for _, cand := range c.candidates {
		out = append(out, Status{ProviderID: cand.id, State: cand.breaker.State()})
	}
	return out
}

// Complete runs the cascade for req, returning the first successful
// result or an AllProvidersExhaustedError enumerating every attempt.
func (c *Cascade) Complete(ctx context.Context, req *CompletionRequest, traceID string) (*CompletionResult, error) {
	var failures []AttemptFailure

	for _, cand := range c.candidates {
		if err := cand.breaker.Allow(); err != nil {
			c.logger.Log(logging.LevelDebug, logging.CategoryCircuit, traceID, "skipping open circuit",
				map[string]any{"provider": cand.id})
			continue
		}

		start := time.Now()
		result, err := c.attemptWithRetry(ctx, cand, req)
		durationMs := time.Since(start).Milliseconds()

		if err == nil && result != nil && result.Text != "" {
			cand.breaker.RecordSuccess()
			c.logger.Log(logging.LevelSuccess, logging.CategoryProvider, traceID, "completion succeeded",
				map[string]any{"provider": cand.id, "duration_ms": durationMs})
			return result, nil
		}

		cand.breaker.RecordFailure()
		reason := "empty response"
		if err != nil {
			reason = err.Error()
		}
		c.logger.Log(logging.LevelWarn, logging.CategoryProvider, traceID, "completion failed, advancing cascade",
			map[string]any{"provider": cand.id, "reason": reason})

		failures = append(failures, AttemptFailure{
			ProviderID: cand.id,
			ModelID:    req.Model,
			Reason:     reason,
			DurationMs: durationMs,
		})

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &AllProvidersExhaustedError{Attempts: failures}
}

// CompleteOne calls exactly one named candidate, still gated by its own
// breaker — used by the Tool Sequence Executor's mcp_id steps, which
// target a specific provider rather than walking the full cascade
// (spec §4.6 step 2).
func (c *Cascade) CompleteOne(ctx context.Context, providerID string, req *CompletionRequest, traceID string) (*CompletionResult, error) {
	for _, cand := range c.candidates {
		if cand.id != providerID {
			continue
		}
		if err := cand.breaker.Allow(); err != nil {
			return nil, err
		}
		result, err := c.attemptWithRetry(ctx, cand, req)
		if err != nil {
			cand.breaker.RecordFailure()
			return nil, err
		}
		cand.breaker.RecordSuccess()
		return result, nil
	}
	return nil, fmt.Errorf("provider %q not found in cascade", providerID)
}

// attemptWithRetry issues a single provider call under its own deadline,
// retrying transient failures with exponential backoff before the
// cascade advances to the next candidate.
func (c *Cascade) attemptWithRetry(ctx context.Context, cand candidate, req *CompletionRequest) (*CompletionResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, cand.timeout)
	defer cancel()

	var result *CompletionResult
	op := func() error {
		r, err := cand.impl.Complete(callCtx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1)
	err := backoff.Retry(op, backoff.WithContext(policy, callCtx))
	return result, err
}
