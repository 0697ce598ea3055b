package embeddings

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder spaces Embed calls to stay under a provider's
// requests-per-minute quota.
type RateLimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps inner. A non-positive rpm disables limiting.
func NewRateLimitedEmbedder(inner Embedder, rpm int) Embedder {
	if rpm <= 0 {
		return inner
	}
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

func (r *RateLimitedEmbedder) Name() string    { return r.inner.Name() }
func (r *RateLimitedEmbedder) Dimensions() int { return r.inner.Dimensions() }

func (r *RateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, failure(r.Name(), err)
	}
	return r.inner.Embed(ctx, texts)
}
