package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/podcast-rag/internal/embeddings"
	"github.com/ziadkadry99/podcast-rag/internal/vectordb"
	"github.com/ziadkadry99/podcast-rag/internal/vectordb/ivf"
)

// tableEmbedder returns fixed vectors for known texts.
type tableEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *tableEmbedder) Name() string    { return "table" }
func (e *tableEmbedder) Dimensions() int { return 3 }

func (e *tableEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

type failingIndex struct{ vectordb.Index }

func (failingIndex) Name() string { return "broken" }
func (failingIndex) Search(context.Context, []float32, int) ([]vectordb.Hit, error) {
	return nil, vectordb.ErrIndexUnavailable
}

func loadedIndex(t *testing.T) vectordb.Index {
	t.Helper()
	idx := vectordb.NewMemoryIndex("podcast_chunks", 3, ivf.Params{})
	_, err := idx.InsertBatch(context.Background(), []vectordb.Entry{
		{Text: "Speaker A: we talked about chips", Vector: []float32{1, 0, 0}},
		{Text: "Speaker B: and about rockets", Vector: []float32{0, 1, 0}},
		{Text: "Speaker A: chips and rockets", Vector: []float32{1, 1, 0}},
		{Text: "Speaker B: mostly chips", Vector: []float32{0.9, 0.1, 0}},
	})
	require.NoError(t, err)
	require.NoError(t, idx.Flush(context.Background()))
	return idx
}

func TestRetrieve_RanksBySimilarity(t *testing.T) {
	emb := &tableEmbedder{vectors: map[string][]float32{"chips?": {1, 0, 0}}}
	svc := NewService(loadedIndex(t), emb, 0, nil)

	got, err := svc.Retrieve(context.Background(), "chips?", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Speaker A: we talked about chips",
		"Speaker B: mostly chips",
		"Speaker A: chips and rockets",
	}, Texts(got))
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
}

func TestRetrieve_DefaultK(t *testing.T) {
	svc := NewService(loadedIndex(t), &tableEmbedder{}, 2, nil)
	got, err := svc.Retrieve(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, DefaultK, NewService(loadedIndex(t), &tableEmbedder{}, 0, nil).DefaultK())
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	idx := vectordb.NewMemoryIndex("empty", 3, ivf.Params{})
	got, err := NewService(idx, &tableEmbedder{}, 0, nil).Retrieve(context.Background(), "hello", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieve_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(loadedIndex(t), &tableEmbedder{}, 0, nil).Retrieve(ctx, "  ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	embErr := &tableEmbedder{err: embeddings.ErrEmbeddingFailure}
	_, err = NewService(loadedIndex(t), embErr, 0, nil).Retrieve(ctx, "q", 5)
	assert.True(t, errors.Is(err, embeddings.ErrEmbeddingFailure))

	_, err = NewService(failingIndex{}, &tableEmbedder{}, 0, nil).Retrieve(ctx, "q", 5)
	assert.True(t, errors.Is(err, vectordb.ErrIndexUnavailable))
}

func TestRetrieve_DimensionMismatch(t *testing.T) {
	emb := &tableEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	_, err := NewService(loadedIndex(t), emb, 0, nil).Retrieve(context.Background(), "q", 1)
	assert.True(t, errors.Is(err, vectordb.ErrDimensionMismatch))
}

func TestJoinContext(t *testing.T) {
	ps := []Passage{{Text: "a"}, {Text: "b"}, {Text: "a"}}
	assert.Equal(t, "a\n\nb\n\na", JoinContext(ps))
	assert.Equal(t, "", JoinContext(nil))
}
