package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// OllamaProvider implements Provider against a local Ollama server's chat
// endpoint. No third-party client exists in the retrieved corpus for
// Ollama's wire format, so this is a hand-rolled HTTP client in the
// teacher's style.
type OllamaProvider struct {
	id         string
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`
	EvalCount int           `json:"eval_count"`
	Error     string        `json:"error,omitempty"`
}

func NewOllamaFactory() Factory {
	return func(cfg *config.ProviderConfig) (Provider, error) {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.DefaultModel
		if model == "" && len(cfg.Models) > 0 {
			model = cfg.Models[0]
		}
		return &OllamaProvider{
			id:         cfg.ID,
			baseURL:    baseURL,
			model:      model,
			httpClient: &http.Client{},
		}, nil
	}
}

func (p *OllamaProvider) Name() string { return p.id }

func (p *OllamaProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]ollamaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(ollamaRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("ollama provider %q: marshaling request: %w", p.id, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama provider %q: building request: %w", p.id, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama provider %q: %w", p.id, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama provider %q: reading response: %w", p.id, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama provider %q: status %d: %s", p.id, resp.StatusCode, string(raw))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("ollama provider %q: unparseable body: %w", p.id, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("ollama provider %q: %s", p.id, parsed.Error)
	}

	return &CompletionResult{
		Text:     parsed.Message.Content,
		Provider: p.id,
		Model:    model,
		Tokens:   parsed.EvalCount,
	}, nil
}
