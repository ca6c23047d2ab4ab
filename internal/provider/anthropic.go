package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// AnthropicProvider implements Provider against the Anthropic Messages API.
type AnthropicProvider struct {
	id     string
	client anthropic.Client
	model  string
}

// NewAnthropicFactory builds a Factory for cloud providers whose
// auth_env_var resolves to an Anthropic API key.
func NewAnthropicFactory() Factory {
	return func(cfg *config.ProviderConfig) (Provider, error) {
		key := os.Getenv(cfg.AuthEnvVar)
		if key == "" {
			return nil, fmt.Errorf("provider %q: env var %q is not set", cfg.ID, cfg.AuthEnvVar)
		}
		opts := []option.RequestOption{option.WithAPIKey(key)}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		model := cfg.DefaultModel
		if model == "" && len(cfg.Models) > 0 {
			model = cfg.Models[0]
		}
		return &AnthropicProvider{
			id:     cfg.ID,
			client: anthropic.NewClient(opts...),
			model:  model,
		}, nil
	}
}

func (p *AnthropicProvider) Name() string { return p.id }

func (p *AnthropicProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var system string
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic provider %q: %w", p.id, err)
	}

	var text string
	for _, block := range resp.Content {
		if t := block.Text; t != "" {
			text += t
		}
	}

	return &CompletionResult{
		Text:     text,
		Provider: p.id,
		Model:    model,
		Tokens:   int(resp.Usage.OutputTokens),
	}, nil
}
