package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmbeddingFailure wraps every error returned by an embedding backend.
var ErrEmbeddingFailure = errors.New("embedding failure")

// Embedder defines the interface for generating text embeddings.
// Implementations must return exactly one vector per input text, in order.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// EmbedOne embeds a single text, typically a query.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d vectors for 1 text", ErrEmbeddingFailure, e.Name(), len(vecs))
	}
	return vecs[0], nil
}

func failure(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrEmbeddingFailure, name, err)
}

func checkCount(name string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s returned %d embeddings, expected %d", ErrEmbeddingFailure, name, got, want)
	}
	return nil
}
