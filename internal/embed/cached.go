package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aineshm/searchlayer/internal/retrieval"
)

// DefaultEmbeddingCacheSize is the default number of embeddings to cache.
const DefaultEmbeddingCacheSize = 1000

// CachedEmbedder wraps a retrieval.Embedder with LRU caching so repeated
// queries (the common case for the query-side embed call) skip recomputing
// the same vector. Adapted from the teacher's CachedEmbedder, narrowed to
// the retrieval.Embedder interface instead of the teacher's richer Embedder
// interface (no Available/Close/thermal passthroughs to carry, since
// StaticEmbedder needs none of them).
type CachedEmbedder struct {
	inner retrieval.Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU cache of the given size. A
// non-positive size falls back to DefaultEmbeddingCacheSize.
func NewCachedEmbedder(inner retrieval.Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	combined := text + "\x00" + c.inner.ModelName()
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// Embed implements retrieval.Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch embeds texts not already cached and fills in cached hits,
// delegating uncached work to inner's EmbedBatch when inner exposes one.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	uncachedIndices := make([]int, 0, len(texts))
	uncachedTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.cache.Get(key); ok {
			results[i] = vec
		} else {
			uncachedIndices = append(uncachedIndices, i)
			uncachedTexts = append(uncachedTexts, text)
		}
	}

	if len(uncachedTexts) == 0 {
		return results, nil
	}

	batcher, ok := c.inner.(interface {
		EmbedBatch(context.Context, []string) ([][]float32, error)
	})
	var newEmbeddings [][]float32
	var err error
	if ok {
		newEmbeddings, err = batcher.EmbedBatch(ctx, uncachedTexts)
	} else {
		newEmbeddings = make([][]float32, len(uncachedTexts))
		for i, text := range uncachedTexts {
			newEmbeddings[i], err = c.inner.Embed(ctx, text)
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}

	for j, idx := range uncachedIndices {
		results[idx] = newEmbeddings[j]
		c.cache.Add(c.cacheKey(texts[idx]), newEmbeddings[j])
	}

	return results, nil
}

// Dim implements retrieval.Embedder.
func (c *CachedEmbedder) Dim() int { return c.inner.Dim() }

// ModelName implements retrieval.Embedder.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Inner returns the wrapped embedder.
func (c *CachedEmbedder) Inner() retrieval.Embedder { return c.inner }

var _ retrieval.Embedder = (*CachedEmbedder)(nil)
