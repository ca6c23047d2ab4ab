package provider

import (
	"context"
	"fmt"
	"os"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// GeminiProvider implements Provider against Google's Generative AI API.
type GeminiProvider struct {
	id     string
	client *genai.Client
	model  string
}

func NewGeminiFactory() Factory {
	return func(cfg *config.ProviderConfig) (Provider, error) {
		key := os.Getenv(cfg.AuthEnvVar)
		if key == "" {
			return nil, fmt.Errorf("provider %q: env var %q is not set", cfg.ID, cfg.AuthEnvVar)
		}
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(key))
		if err != nil {
			return nil, fmt.Errorf("provider %q: constructing gemini client: %w", cfg.ID, err)
		}
		model := cfg.DefaultModel
		if model == "" && len(cfg.Models) > 0 {
			model = cfg.Models[0]
		}
		return &GeminiProvider{id: cfg.ID, client: client, model: model}, nil
	}
}

func (p *GeminiProvider) Name() string { return p.id }

func (p *GeminiProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	gm := p.client.GenerativeModel(model)
	gm.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	var parts []genai.Part
	for _, m := range req.Messages {
		if m.Role == "system" {
			gm.SystemInstruction = genai.NewUserContent(genai.Text(m.Content))
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini provider %q: %w", p.id, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini provider %q: empty response", p.id)
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &CompletionResult{Text: text, Provider: p.id, Model: model, Tokens: tokens}, nil
}
