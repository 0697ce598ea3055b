// Package retrieval answers "which transcript passages are most relevant to
// this question" against a loaded index.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/podcast-rag/internal/embeddings"
	"github.com/ziadkadry99/podcast-rag/internal/vectordb"
)

// DefaultK is the number of passages returned when the caller does not ask
// for a specific count.
const DefaultK = 50

// ErrEmptyQuery is returned when Retrieve receives a blank query.
var ErrEmptyQuery = errors.New("query must not be empty")

// Passage is one retrieved chunk.
type Passage struct {
	ID    int64   `json:"id"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// Service embeds queries and ranks passages. It never mutates the index.
type Service struct {
	index    vectordb.Index
	embedder embeddings.Embedder
	defaultK int
	logger   *slog.Logger
}

// NewService creates a Service. A non-positive defaultK uses DefaultK.
func NewService(index vectordb.Index, embedder embeddings.Embedder, defaultK int, logger *slog.Logger) *Service {
	if defaultK <= 0 {
		defaultK = DefaultK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{index: index, embedder: embedder, defaultK: defaultK, logger: logger}
}

// DefaultK returns the configured passage count.
func (s *Service) DefaultK() int { return s.defaultK }

// Retrieve returns up to k passages ranked by descending similarity to
// query. k <= 0 uses the default. An empty index yields an empty slice;
// embedding or search failures are returned, never an empty result.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = s.defaultK
	}
	start := time.Now()

	vec, err := embeddings.EmbedOne(ctx, s.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", s.index.Name(), err)
	}

	passages := make([]Passage, len(hits))
	for i, h := range hits {
		passages[i] = Passage{ID: h.ID, Text: h.Text, Score: h.Score}
	}

	s.logger.DebugContext(ctx, "retrieved passages", "k", k, "returned", len(passages), "duration", time.Since(start))
	return passages, nil
}

// Texts returns the passage texts in rank order.
func Texts(passages []Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Text
	}
	return out
}

// JoinContext concatenates passage texts into one context block, separated
// by blank lines, preserving rank order. Passages are not deduplicated.
func JoinContext(passages []Passage) string {
	return strings.Join(Texts(passages), "\n\n")
}
