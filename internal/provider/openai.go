package provider

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// OpenAIProvider implements Provider against the OpenAI chat completions API
// (and any OpenAI-compatible endpoint reachable via base_url).
type OpenAIProvider struct {
	id     string
	client *openai.Client
	model  string
}

func NewOpenAIFactory() Factory {
	return func(cfg *config.ProviderConfig) (Provider, error) {
		key := os.Getenv(cfg.AuthEnvVar)
		if key == "" {
			return nil, fmt.Errorf("provider %q: env var %q is not set", cfg.ID, cfg.AuthEnvVar)
		}
		clientCfg := openai.DefaultConfig(key)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		model := cfg.DefaultModel
		if model == "" && len(cfg.Models) > 0 {
			model = cfg.Models[0]
		}
		return &OpenAIProvider{
			id:     cfg.ID,
			client: openai.NewClientWithConfig(clientCfg),
			model:  model,
		}, nil
	}
}

func (p *OpenAIProvider) Name() string { return p.id }

func (p *OpenAIProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("openai provider %q: %w", p.id, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai provider %q: empty choices", p.id)
	}

	return &CompletionResult{
		Text:     resp.Choices[0].Message.Content,
		Provider: p.id,
		Model:    model,
		Tokens:   resp.Usage.CompletionTokens,
	}, nil
}
