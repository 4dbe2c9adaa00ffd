// Package embcache provides a bounded LRU cache of query embeddings,
// decorating a domain.Embedder. The get-or-compute-then-evict sequence runs
// under a mutex; concurrent misses for the same key are coalesced so at most
// one provider call is in flight per distinct key.
package embcache

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// DefaultCapacity is used when no capacity is configured.
const DefaultCapacity = 1000

// CachedEmbedder caches query embeddings in memory with LRU eviction.
type CachedEmbedder struct {
	inner      domain.Embedder
	capacity   int
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	hits    uint64
	misses  uint64

	group singleflight.Group
}

type cacheEntry struct {
	key    string
	vector []float32
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Size     int
	Capacity int
}

// New creates a caching decorator with the given capacity.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	capacity int,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &CachedEmbedder{
		inner:      inner,
		capacity:   capacity,
		cacheTotal: cacheTotal,
		logger:     logger,
		entries:    make(map[string]*list.Element, capacity),
		order:      list.New(),
	}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed) and the entry is
// promoted to most-recently-used. Cache miss: full EmbeddingResult from
// inner, after which the vector is inserted and the least-recently-used
// entry is evicted if the cache is over capacity.
//
// Callers must treat the returned vector as read-only; it is shared with
// the cache.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := NormalizeKey(text)

	if vec, ok := c.lookup(key); ok {
		c.record("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, key)
	})
	if err != nil {
		c.record("miss")
		return domain.EmbeddingResult{}, err
	}

	// Hits and misses are recorded after the flight resolves: a flight that
	// found the entry populated by a concurrent insert is a hit, not a miss.
	fr := v.(flightResult)
	if fr.cached {
		c.record("hit")
	} else {
		c.record("miss")
	}
	return fr.result, nil
}

// flightResult carries the embedding out of a singleflight call along with
// whether it was served from the cache.
type flightResult struct {
	result domain.EmbeddingResult
	cached bool
}

// fetch runs inside the singleflight slot for key. Another flight may have
// populated the entry between the caller's lookup and this call, so the
// cache is re-checked before going to the provider.
func (c *CachedEmbedder) fetch(ctx context.Context, key string) (flightResult, error) {
	if vec, ok := c.lookup(key); ok {
		return flightResult{result: domain.EmbeddingResult{Embedding: vec}, cached: true}, nil
	}

	result, err := c.inner.Embed(ctx, key)
	if err != nil {
		return flightResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.insert(key, result.Embedding)
	return flightResult{result: result}, nil
}

// Clear drops all cached entries. Counters are preserved.
func (c *CachedEmbedder) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
	c.logger.Info("Query embedding cache cleared")
}

// Stats returns current cache counters.
func (c *CachedEmbedder) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Size:     c.order.Len(),
		Capacity: c.capacity,
	}
}

// NormalizeKey is the fixed cache-key normalization: leading/trailing
// whitespace is trimmed and internal whitespace runs collapse to a single
// space. Case is preserved: the embedding model is case-sensitive, so texts
// differing in case must not share a vector.
func NormalizeKey(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (c *CachedEmbedder) lookup(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).vector, true
}

func (c *CachedEmbedder) insert(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).vector = vector
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, vector: vector})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *CachedEmbedder) record(result string) {
	c.mu.Lock()
	if result == "hit" {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
