package retrieval

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingCache memoizes recent query embeddings to eliminate redundant
// provider calls (spec §4.5 step 1). Hit rate is exposed as a metric.
type EmbeddingCache struct {
	cache *lru.Cache[string, []float32]
	hits  atomic.Int64
	total atomic.Int64
}

// NewEmbeddingCache builds a bounded LRU; size <= 0 selects the default
// capacity of 256 entries.
func NewEmbeddingCache(size int) (*EmbeddingCache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &EmbeddingCache{cache: c}, nil
}

// Get returns a cached embedding for text, if present.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.total.Add(1)
	v, ok := c.cache.Get(text)
	if ok {
		c.hits.Add(1)
	}
	return v, ok
}

// Put stores an embedding for text.
func (c *EmbeddingCache) Put(text string, vector []float32) {
	c.cache.Add(text, vector)
}

// HitRate returns the running cache hit ratio in [0, 1].
func (c *EmbeddingCache) HitRate() float64 {
	total := c.total.Load()
	if total == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(total)
}
