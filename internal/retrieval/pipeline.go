package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
)

// ErrNoRelevantContext is returned when no retrieved document clears the
// configured score_threshold (spec §4.5 edge case).
var ErrNoRelevantContext = errors.New("no_relevant_context")

const contextSystemInstruction = "Answer using the following context. If the context is insufficient, say so."

// Pipeline implements the embed -> search -> assemble -> complete flow.
type Pipeline struct {
	kbID       string
	collection string
	embedder   Embedder
	store      Store
	cascade    *provider.Cascade
	cache      *EmbeddingCache
	logger     *logging.Logger

	topK           int
	scoreThreshold float64
	contextBudget  int
	degradeToLLM   bool
}

// NewPipeline builds a Pipeline bound to one knowledge base, applying
// the retrieval defaults from RetrievalConfig where the knowledge base
// itself leaves a field unset.
func NewPipeline(kbID string, kb *config.KnowledgeBaseConfig, retrieval config.RetrievalConfig, embedder Embedder, store Store, cascade *provider.Cascade, logger *logging.Logger) (*Pipeline, error) {
	cache, err := NewEmbeddingCache(retrieval.EmbeddingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("building embedding cache: %w", err)
	}

	topK := kb.TopK
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	if topK <= 0 {
		topK = 5
	}
	scoreThreshold := kb.ScoreThreshold
	if scoreThreshold <= 0 {
		scoreThreshold = retrieval.ScoreThreshold
	}
	if scoreThreshold <= 0 {
		scoreThreshold = 0.7
	}
	contextBudget := retrieval.ContextBudgetTokens
	if contextBudget <= 0 {
		contextBudget = 1500
	}

	return &Pipeline{
		kbID:           kbID,
		collection:     kbID,
		embedder:       embedder,
		store:          store,
		cascade:        cascade,
		cache:          cache,
		logger:         logger,
		topK:           topK,
		scoreThreshold: scoreThreshold,
		contextBudget:  contextBudget,
		degradeToLLM:   config.EnabledOrDefault(retrieval.RAGDegradeToLLM),
	}, nil
}

// embed resolves text to a vector, consulting the cache first.
func (p *Pipeline) embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := p.cache.Get(text); ok {
		return v, nil
	}
	v, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	p.cache.Put(text, v)
	return v, nil
}

// Answer runs the full RAG pipeline for message, returning the completion
// and the hits that grounded it.
func (p *Pipeline) Answer(ctx context.Context, message string, history []provider.Message, traceID string) (*provider.CompletionResult, []Hit, error) {
	vector, err := p.embed(ctx, message)
	if err != nil {
		return nil, nil, err
	}

	hits, err := p.store.Search(ctx, p.collection, vector, p.topK, p.scoreThreshold)
	if err != nil {
		return nil, nil, fmt.Errorf("vector search: %w", err)
	}

	p.logger.Log(logging.LevelInfo, logging.CategoryRAG, traceID, "retrieval search complete",
		map[string]any{"knowledge_base": p.kbID, "hits": len(hits), "cache_hit_rate": p.cache.HitRate()})

	if len(hits) == 0 {
		return nil, nil, ErrNoRelevantContext
	}

	assembled := assembleContext(hits, p.contextBudget)

	messages := make([]provider.Message, 0, len(history)+3)
	messages = append(messages, provider.Message{Role: "system", Content: contextSystemInstruction})
	messages = append(messages, provider.Message{Role: "system", Content: assembled})
	messages = append(messages, history...)
	messages = append(messages, provider.Message{Role: "user", Content: message})

	result, err := p.cascade.Complete(ctx, &provider.CompletionRequest{Messages: messages}, traceID)
	if err != nil {
		return nil, hits, err
	}
	return result, hits, nil
}

// DegradeToLLM reports whether a no_relevant_context outcome should fall
// back to a plain llm strategy rather than surface an error (spec §4.5).
func (p *Pipeline) DegradeToLLM() bool { return p.degradeToLLM }

// StoreInfo reports the backing vector store's reachability and shape
// for health introspection (spec §6 GET /health: "vector_store:
// {reachable}").
func (p *Pipeline) StoreInfo(ctx context.Context) (StoreInfo, error) {
	return p.store.Info(ctx, p.collection)
}

// assembleContext concatenates hits in descending score order, truncated
// to fit a token budget (spec §4.5 step 3), token-accurate rather than
// a raw byte-length cutoff.
func assembleContext(hits []Hit, budget int) string {
	sorted := make([]Hit, len(hits))
	copy(sorted, hits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	var b strings.Builder
	used := 0
	for _, h := range sorted {
		if used >= budget {
			break
		}
		remaining := budget - used
		text := h.Text
		tokens := countTokens(text)
		if tokens > remaining {
			text = truncateToTokens(text, remaining)
			tokens = remaining
		}
		if b.Len() > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(text)
		used += tokens
	}
	return b.String()
}
