// Package builtin implements the illustrative Agent the seed decision
// rules can route to when an agent's behavior is "run this configured
// tool sequence" rather than custom business logic (spec §4.7:
// "agent may internally call C6 and C4").
package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Billhebert/chatIAS-sub000/internal/agent"
	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/sequence"
)

// SequenceRunner drives a named ToolSequence through the Tool Sequence
// Executor and reports its last step's result as the agent's answer.
type SequenceRunner struct {
	agentID  string
	seqID    string
	seq      *config.ToolSequenceConfig
	executor *sequence.Executor
}

// NewSequenceRunnerFactory binds an agent.Factory to the core's executor
// and configured sequences, resolving AgentConfig.RunSequence at
// construction time so a dangling reference fails at load (spec §4.1).
func NewSequenceRunnerFactory(executor *sequence.Executor, sequences map[string]*config.ToolSequenceConfig) agent.Factory {
	return func(cfg *config.AgentConfig) (agent.Agent, error) {
		if cfg.RunSequence == "" {
			return nil, fmt.Errorf("agent %q has class sequence_runner but no run_sequence configured", cfg.ID)
		}
		seq, ok := sequences[cfg.RunSequence]
		if !ok {
			return nil, fmt.Errorf("agent %q references unknown tool sequence %q", cfg.ID, cfg.RunSequence)
		}
		return &SequenceRunner{agentID: cfg.ID, seqID: cfg.RunSequence, seq: seq, executor: executor}, nil
	}
}

func (s *SequenceRunner) OnInit(_ context.Context) error    { return nil }
func (s *SequenceRunner) OnDestroy(_ context.Context) error { return nil }

func (s *SequenceRunner) Execute(ctx agent.ExecContext, input string) (*agent.Result, error) {
	params := map[string]any{"message": input}
	for k, v := range ctx.Params {
		params[k] = v
	}

	result, err := s.executor.Run(ctx.Context, s.seqID, s.seq, params, ctx.TraceID)
	if err != nil {
		return nil, fmt.Errorf("agent %q running sequence %q: %w", s.agentID, s.seqID, err)
	}

	return &agent.Result{
		Text:       summarizeRun(result),
		ToolUsed:   lastToolID(s.seq, result),
		Confidence: 1.0,
		Metadata:   map[string]any{"sequence_id": s.seqID, "stopped_at": result.StoppedAt},
	}, nil
}

func summarizeRun(result *sequence.RunResult) string {
	if len(result.Outcomes) == 0 {
		return "The sequence produced no steps."
	}
	last := result.Outcomes[len(result.Outcomes)-1]
	if result.StoppedAt != 0 {
		return fmt.Sprintf("Sequence stopped at step %d: %v", result.StoppedAt, last.Err)
	}
	if !last.OK {
		return fmt.Sprintf("Sequence's final step failed: %v", last.Err)
	}
	b, err := json.Marshal(last.Data)
	if err != nil {
		return fmt.Sprintf("%v", last.Data)
	}
	return string(b)
}

func lastToolID(seq *config.ToolSequenceConfig, result *sequence.RunResult) string {
	if len(result.Outcomes) == 0 || len(seq.Steps) == 0 {
		return ""
	}
	order := result.Outcomes[len(result.Outcomes)-1].Order
	for _, step := range seq.Steps {
		if step.Order == order {
			if step.ToolID != "" {
				return step.ToolID
			}
			return step.MCPID
		}
	}
	return ""
}
