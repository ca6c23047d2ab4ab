// Package retrieval implements the Retrieval Subsystem (spec §4.5, C5):
// embedding generation, vector search, context assembly, and delegation
// to the Provider Cascade for the final completion.
package retrieval

import (
	"context"
	"fmt"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// Hit is one scored vector-store match (spec §4.5 step 2).
type Hit struct {
	Score    float64
	Text     string
	Metadata map[string]any
}

// StoreInfo summarizes a collection's backing index.
type StoreInfo struct {
	Count    int
	Dim      int
	Distance string
}

// Store is the vector-store contract every knowledge base is built
// against: upsert, nearest-neighbor search, and introspection.
type Store interface {
	Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error
	Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64) ([]Hit, error)
	Info(ctx context.Context, collection string) (StoreInfo, error)
}

// StoreFactory constructs a Store from a KnowledgeBaseConfig, keyed by
// StoreType ("qdrant" | "chromem").
type StoreFactory func(cfg *config.KnowledgeBaseConfig) (Store, error)

// errUnknownStoreType builds the error for when no StoreFactory matches a
// KnowledgeBaseConfig's declared store_type.
func errUnknownStoreType(storeType string) error {
	return fmt.Errorf("no vector store factory registered for store_type %q", storeType)
}
