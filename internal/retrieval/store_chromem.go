package retrieval

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// ChromemStore implements Store using chromem-go's embedded, in-process
// vector index — the zero-config backend for knowledge bases that don't
// need a networked store.
type ChromemStore struct {
	db          *chromem.DB
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

func NewChromemStoreFactory() StoreFactory {
	return func(cfg *config.KnowledgeBaseConfig) (Store, error) {
		var db *chromem.DB
		if cfg.Connection != "" {
			loaded, err := chromem.NewPersistentDB(cfg.Connection, false)
			if err != nil {
				db = chromem.NewDB()
			} else {
				db = loaded
			}
		} else {
			db = chromem.NewDB()
		}
		return &ChromemStore{db: db, collections: make(map[string]*chromem.Collection)}, nil
	}
}

// identityEmbed rejects calls: vectors are always pre-computed by the
// embedder upstream of the store (spec §4.5 step 1).
func identityEmbed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("chromem store received a text query instead of a precomputed vector")
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	s.mu.RLock()
	if c, ok := s.collections[name]; ok {
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c, err := s.db.GetOrCreateCollection(name, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("chromem: get/create collection %q: %w", name, err)
	}
	s.collections[name] = c
	return c, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	strMeta := make(map[string]string, len(metadata))
	content := ""
	for k, v := range metadata {
		if k == "text" {
			content = fmt.Sprint(v)
		}
		strMeta[k] = fmt.Sprint(v)
	}

	doc := chromem.Document{ID: id, Content: content, Metadata: strMeta, Embedding: vector}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem: upsert %q: %w", id, err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64) ([]Hit, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: search: %w", err)
	}

	out := make([]Hit, 0, len(results))
	for _, r := range results {
		if float64(r.Similarity) < minScore {
			continue
		}
		metadata := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		out = append(out, Hit{Score: float64(r.Similarity), Text: r.Content, Metadata: metadata})
	}
	return out, nil
}

func (s *ChromemStore) Info(ctx context.Context, collection string) (StoreInfo, error) {
	col, err := s.collection(collection)
	if err != nil {
		return StoreInfo{}, err
	}
	return StoreInfo{Count: col.Count(), Distance: "cosine"}, nil
}
