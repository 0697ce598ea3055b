package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Cache stores vectors keyed by model and text. Get returns one entry per
// key, nil on a miss.
type Cache interface {
	Get(ctx context.Context, keys []string) ([][]float32, error)
	Set(ctx context.Context, keys []string, vecs [][]float32) error
}

// CachedEmbedder serves repeated texts from a Cache and embeds only the
// misses. Cache errors are logged and treated as misses.
type CachedEmbedder struct {
	inner  Embedder
	cache  Cache
	logger *slog.Logger
}

func NewCachedEmbedder(inner Embedder, cache Cache, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{inner: inner, cache: cache, logger: logger}
}

func (c *CachedEmbedder) Name() string    { return c.inner.Name() }
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = CacheKey(c.inner.Name(), t)
	}

	out, err := c.cache.Get(ctx, keys)
	if err != nil || len(out) != len(keys) {
		if err != nil {
			c.logger.WarnContext(ctx, "embedding cache read failed", "error", err)
		}
		out = make([][]float32, len(keys))
	}

	var missIdx []int
	var missTexts []string
	for i, v := range out {
		if len(v) != c.inner.Dimensions() {
			out[i] = nil
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if err := checkCount(c.inner.Name(), len(vecs), len(missTexts)); err != nil {
		return nil, err
	}

	missKeys := make([]string, len(missIdx))
	for j, i := range missIdx {
		out[i] = vecs[j]
		missKeys[j] = keys[i]
	}
	if err := c.cache.Set(ctx, missKeys, vecs); err != nil {
		c.logger.WarnContext(ctx, "embedding cache write failed", "error", err)
	}

	c.logger.DebugContext(ctx, "embedded batch", "hits", len(texts)-len(missTexts), "misses", len(missTexts))
	return out, nil
}

// CacheKey derives a stable cache key from the model name and text.
func CacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return model + ":" + hex.EncodeToString(h.Sum(nil))
}
