package builtin

import (
	"context"
	"fmt"

	"github.com/Billhebert/chatIAS-sub000/internal/agent"
	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
)

// ConversationalAgent is the "conversational" agent class: it forwards
// input to the Provider Cascade with the descriptor's Description as a
// system instruction.
type ConversationalAgent struct {
	agentID     string
	instruction string
	cascade     *provider.Cascade
}

// NewConversationalFactory builds the agent.Factory for the
// "conversational" class. Every completion goes through the cascade's
// own provider ordering; an agent cannot be pinned to one provider.
func NewConversationalFactory(cascade *provider.Cascade) agent.Factory {
	return func(cfg *config.AgentConfig) (agent.Agent, error) {
		return &ConversationalAgent{
			agentID:     cfg.ID,
			instruction: cfg.Description,
			cascade:     cascade,
		}, nil
	}
}

func (c *ConversationalAgent) OnInit(_ context.Context) error    { return nil }
func (c *ConversationalAgent) OnDestroy(_ context.Context) error { return nil }

func (c *ConversationalAgent) Execute(ctx agent.ExecContext, input string) (*agent.Result, error) {
	messages := make([]provider.Message, 0, 2)
	if c.instruction != "" {
		messages = append(messages, provider.Message{Role: "system", Content: c.instruction})
	}
	messages = append(messages, provider.Message{Role: "user", Content: input})

	result, err := c.cascade.Complete(ctx.Context, &provider.CompletionRequest{Messages: messages}, ctx.TraceID)
	if err != nil {
		return nil, fmt.Errorf("agent %q completing via cascade: %w", c.agentID, err)
	}
	return &agent.Result{
		Text:       result.Text,
		Confidence: 0.8,
		Metadata:   map[string]any{"provider": result.Provider},
	}, nil
}
