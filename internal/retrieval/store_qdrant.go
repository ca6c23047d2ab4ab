package retrieval

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// QdrantStore implements Store against a networked Qdrant instance
// (cfg.Connection is a "host:port" gRPC address).
type QdrantStore struct {
	client *qdrant.Client
	dim    int
}

func NewQdrantStoreFactory() StoreFactory {
	return func(cfg *config.KnowledgeBaseConfig) (Store, error) {
		host, port := parseQdrantConnection(cfg.Connection)
		client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
		if err != nil {
			return nil, fmt.Errorf("qdrant: connecting to %s:%d: %w", host, port, err)
		}
		return &QdrantStore{client: client, dim: cfg.Dimension}, nil
	}
}

func parseQdrantConnection(conn string) (string, int) {
	host, port := "localhost", 6334
	if conn == "" {
		return host, port
	}
	if u, err := url.Parse(conn); err == nil && u.Host != "" {
		conn = u.Host
	}
	if h, p, ok := strings.Cut(conn, ":"); ok {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	} else {
		host = conn
	}
	return host, port
}

func (s *QdrantStore) ensureCollection(ctx context.Context, collection string, dim int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("qdrant: checking collection %q: %w", collection, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("qdrant: creating collection %q: %w", collection, err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error {
	dim := s.dim
	if dim == 0 {
		dim = len(vector)
	}
	if err := s.ensureCollection(ctx, collection, dim); err != nil {
		return err
	}

	payload := make(map[string]*qdrant.Value, len(metadata))
	for k, v := range metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			return fmt.Errorf("qdrant: converting metadata key %q: %w", k, err)
		}
		payload[k] = val
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %q: %w", id, err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64) ([]Hit, error) {
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: qdrant.PtrOf(float32(minScore)),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	out := make([]Hit, 0, len(result))
	for _, p := range result {
		metadata := make(map[string]any, len(p.Payload))
		text := ""
		for k, v := range p.Payload {
			metadata[k] = v.String()
			if k == "text" {
				text = v.String()
			}
		}
		out = append(out, Hit{Score: float64(p.Score), Text: text, Metadata: metadata})
	}
	return out, nil
}

func (s *QdrantStore) Info(ctx context.Context, collection string) (StoreInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return StoreInfo{}, fmt.Errorf("qdrant: collection info: %w", err)
	}
	count := 0
	if info.PointsCount != nil {
		count = int(*info.PointsCount)
	}
	return StoreInfo{Count: count, Dim: s.dim, Distance: "cosine"}, nil
}
