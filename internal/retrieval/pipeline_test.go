package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
)

type fakeEmbedder struct {
	vector []float32
	calls  int
}

func (f *fakeEmbedder) Name() string { return "fake-embedder" }
func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vector, nil
}

type fakeStore struct {
	hits []Hit
}

func (f *fakeStore) Upsert(context.Context, string, string, []float32, map[string]any) error {
	return nil
}
func (f *fakeStore) Search(context.Context, string, []float32, int, float64) ([]Hit, error) {
	return f.hits, nil
}
func (f *fakeStore) Info(context.Context, string) (StoreInfo, error) { return StoreInfo{}, nil }

func TestEmbeddingCache_HitsAvoidRecompute(t *testing.T) {
	cache, err := NewEmbeddingCache(4)
	require.NoError(t, err)

	_, ok := cache.Get("hello")
	assert.False(t, ok)

	cache.Put("hello", []float32{1, 2, 3})
	v, ok := cache.Get("hello")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)
	assert.Greater(t, cache.HitRate(), 0.0)
}

func TestAssembleContext_TruncatesToBudget(t *testing.T) {
	hits := []Hit{
		{Score: 0.9, Text: strings.Repeat("alpha ", 30)},
		{Score: 0.95, Text: strings.Repeat("bravo ", 30)},
	}
	out := assembleContext(hits, 5)
	assert.LessOrEqual(t, countTokens(out), 5)
	assert.True(t, strings.HasPrefix(out, "bravo"))
}

func TestCountTokens_TracksTextLength(t *testing.T) {
	short := countTokens("hello")
	long := countTokens(strings.Repeat("hello world ", 50))
	assert.Greater(t, long, short)
}

func TestPipeline_NoHitsReturnsNoRelevantContext(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	store := &fakeStore{hits: nil}

	p, err := NewPipeline("kb1", &config.KnowledgeBaseConfig{}, config.RetrievalConfig{}, embedder, store, nil, logging.New())
	require.NoError(t, err)

	_, _, err = p.Answer(context.Background(), "what is up", nil, "trace-1")
	assert.ErrorIs(t, err, ErrNoRelevantContext)
	assert.True(t, p.DegradeToLLM())
}

func TestPipeline_EmbedderCalledOnceThenCached(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	store := &fakeStore{hits: nil}

	p, err := NewPipeline("kb1", &config.KnowledgeBaseConfig{}, config.RetrievalConfig{}, embedder, store, nil, logging.New())
	require.NoError(t, err)

	_, _, _ = p.Answer(context.Background(), "repeated query", nil, "trace-1")
	_, _, _ = p.Answer(context.Background(), "repeated query", nil, "trace-2")
	assert.Equal(t, 1, embedder.calls)
}
