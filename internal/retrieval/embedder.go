package retrieval

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// Embedder turns text into a vector with one call to a single embedding
// provider; no fallback to another embedding provider is attempted and no
// circuit breaker gates the call. Kept distinct from provider.Provider
// since an embedding response shape (a float vector) is not a chat
// completion.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFactory constructs an Embedder from the provider that backs a
// KnowledgeBaseConfig's embedding_model reference.
type EmbedderFactory func(cfg *config.ProviderConfig) (Embedder, error)

// OpenAIEmbedder calls OpenAI's embeddings endpoint.
type OpenAIEmbedder struct {
	id     string
	client *openai.Client
	model  string
}

func NewOpenAIEmbedderFactory() EmbedderFactory {
	return func(cfg *config.ProviderConfig) (Embedder, error) {
		key := os.Getenv(cfg.AuthEnvVar)
		if key == "" {
			return nil, fmt.Errorf("embedding provider %q: env var %q is not set", cfg.ID, cfg.AuthEnvVar)
		}
		clientCfg := openai.DefaultConfig(key)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		model := cfg.DefaultModel
		if model == "" && len(cfg.Models) > 0 {
			model = cfg.Models[0]
		}
		return &OpenAIEmbedder{id: cfg.ID, client: openai.NewClientWithConfig(clientCfg), model: model}, nil
	}
}

func (e *OpenAIEmbedder) Name() string { return e.id }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedder %q: %w", e.id, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedder %q: empty embedding response", e.id)
	}
	return resp.Data[0].Embedding, nil
}
