package embed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/docsearch/internal/metrics"
)

// cacheKey identifies one text under one model.
type cacheKey [sha256.Size]byte

// CachedEmbedder keeps recent embeddings in an LRU so repeated searches for
// the same query, and reindexing unchanged documents, skip the model.
//
// Every returned vector is a private copy; callers may modify it freely.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[cacheKey, []float32]
	// salt is the model name digest mixed into every key, so a cache never
	// serves vectors from a different model.
	salt [sha256.Size]byte
}

// NewCachedEmbedder wraps inner with a cache of cacheSize entries
// (DefaultCacheSize when cacheSize <= 0).
func NewCachedEmbedder(inner Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[cacheKey, []float32](cacheSize)
	return &CachedEmbedder{
		inner: inner,
		cache: cache,
		salt:  sha256.Sum256([]byte(inner.ModelName())),
	}
}

func (c *CachedEmbedder) key(text string) cacheKey {
	h := sha256.New()
	h.Write(c.salt[:])
	h.Write([]byte(text))
	var k cacheKey
	h.Sum(k[:0])
	return k
}

func (c *CachedEmbedder) lookup(k cacheKey) ([]float32, bool) {
	vec, ok := c.cache.Get(k)
	if !ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
	return slices.Clone(vec), true
}

// Embed returns the cached vector for text or computes and stores it.
// Errors are never cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	k := c.key(text)
	if vec, ok := c.lookup(k); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, slices.Clone(vec))
	return vec, nil
}

// EmbedBatch serves hits from the cache and sends the distinct misses to the
// model in one batch, preserving input order.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	keys := make([]cacheKey, len(texts))
	pending := make(map[cacheKey][]int) // key -> positions waiting for it
	var misses []string
	var missKeys []cacheKey

	for i, text := range texts {
		keys[i] = c.key(text)
		if positions, queued := pending[keys[i]]; queued {
			pending[keys[i]] = append(positions, i)
			continue
		}
		if vec, ok := c.lookup(keys[i]); ok {
			results[i] = vec
			continue
		}
		pending[keys[i]] = []int{i}
		misses = append(misses, text)
		missKeys = append(missKeys, keys[i])
	}
	if len(misses) == 0 {
		return results, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(misses) {
		return nil, fmt.Errorf("model returned %d vectors for %d texts", len(vecs), len(misses))
	}

	for j, k := range missKeys {
		c.cache.Add(k, slices.Clone(vecs[j]))
		for n, pos := range pending[k] {
			if n == 0 {
				results[pos] = vecs[j]
			} else {
				results[pos] = slices.Clone(vecs[j])
			}
		}
	}
	return results, nil
}

// Dimensions returns the inner model's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName returns the inner model's name.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Close closes the inner model. Cached vectors stay usable.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }

// Len returns the number of cached embeddings.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }
