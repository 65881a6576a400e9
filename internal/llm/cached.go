package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/alphasentinel/internal/cache"
)

// CachedEmbedder serves repeated passages from a cache and embeds only misses
type CachedEmbedder struct {
	inner Embedder
	model string
	store cache.Cache
}

// WithEmbeddingCache wraps e with store. A nil store returns e unchanged.
func WithEmbeddingCache(e Embedder, embeddingModel string, store cache.Cache) Embedder {
	if store == nil {
		return e
	}
	return &CachedEmbedder{inner: e, model: embeddingModel, store: store}
}

// Name returns the wrapped provider name
func (c *CachedEmbedder) Name() string {
	return c.inner.Name()
}

// Embed returns cached vectors where present and fetches the rest in one call
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if data, ok := c.store.Get(c.key(text)); ok {
			if v, err := cache.DecodeVector(data); err == nil && len(v) > 0 {
				vectors[i] = v
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	slog.Debug("embedding cache lookup", "provider", c.inner.Name(), "hits", len(texts)-len(missTexts), "misses", len(missTexts))

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("%s returned %d embeddings for %d inputs", c.inner.Name(), len(fresh), len(missTexts))
	}

	for j, i := range missIdx {
		vectors[i] = fresh[j]
		if err := c.store.Set(c.key(missTexts[j]), cache.EncodeVector(fresh[j]), 0); err != nil {
			slog.Warn("embedding cache write failed", "error", err)
		}
	}
	return vectors, nil
}

func (c *CachedEmbedder) key(text string) string {
	return cache.EmbeddingKey(c.inner.Name(), c.model, text)
}
