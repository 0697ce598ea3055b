package vectordb

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/podcast-rag/internal/vectordb/ivf"
)

const testDim = 16

// deterministicVector produces a vector from text so that equal texts map
// to equal vectors.
func deterministicVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for i, ch := range text {
		vec[(int(ch)+i)%dims] += 1.0
	}
	return vec
}

func randomEntries(n int, seed int64) []Entry {
	r := rand.New(rand.NewSource(seed))
	out := make([]Entry, n)
	for i := range out {
		v := make([]float32, testDim)
		for d := range v {
			v[d] = float32(r.NormFloat64())
		}
		out[i] = Entry{Text: fmt.Sprintf("unit %d", i), Vector: v}
	}
	return out
}

type indexFactory func(t *testing.T) Index

func backends() map[string]indexFactory {
	return map[string]indexFactory{
		"memory": func(t *testing.T) Index {
			return NewMemoryIndex("test", testDim, ivf.Params{NList: 8, NProbe: 2})
		},
		"sqlite": func(t *testing.T) Index {
			ix, err := OpenSQLiteFile(context.Background(), filepath.Join(t.TempDir(), "index.db"), "test", testDim, ivf.Params{NList: 8, NProbe: 2})
			require.NoError(t, err)
			return ix
		},
		"chromem": func(t *testing.T) Index {
			ix, err := OpenChromem(context.Background(), "test", testDim, "")
			require.NoError(t, err)
			return ix
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, ix Index)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ix := factory(t)
			defer ix.Close()
			fn(t, ix)
		})
	}
}

func insertAndFlush(t *testing.T, ix Index, entries []Entry) []int64 {
	t.Helper()
	ctx := context.Background()
	ids, err := ix.InsertBatch(ctx, entries)
	require.NoError(t, err)
	require.NoError(t, ix.Flush(ctx))
	return ids
}

func TestIndex_RoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ix Index) {
		ctx := context.Background()
		entries := randomEntries(120, 1)
		ids := insertAndFlush(t, ix, entries)

		require.Len(t, ids, len(entries))
		for i := 1; i < len(ids); i++ {
			require.Greater(t, ids[i], ids[i-1], "ids must increase")
		}

		for i, e := range entries {
			hits, err := ix.Search(ctx, e.Vector, len(entries))
			require.NoError(t, err)
			require.Len(t, hits, len(entries))
			assert.Equal(t, e.Text, hits[0].Text, "top hit for entry %d", i)
			assert.Equal(t, ids[i], hits[0].ID)
			assert.InDelta(t, 1.0, hits[0].Score, 1e-4, "self similarity")
		}
	})
}

func TestIndex_SearchLength(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ix Index) {
		ctx := context.Background()
		q := randomEntries(1, 99)[0].Vector

		hits, err := ix.Search(ctx, q, 5)
		require.NoError(t, err)
		assert.Empty(t, hits, "empty index")

		insertAndFlush(t, ix, randomEntries(30, 2))
		for _, k := range []int{1, 7, 30, 31, 100} {
			hits, err := ix.Search(ctx, q, k)
			require.NoError(t, err)
			assert.Len(t, hits, min(k, 30), "k=%d", k)
			for i := 1; i < len(hits); i++ {
				require.LessOrEqual(t, hits[i].Score, hits[i-1].Score, "hits not sorted at %d", i)
			}
		}
	})
}

func TestIndex_FlushGatesVisibility(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ix Index) {
		ctx := context.Background()
		entries := randomEntries(10, 3)
		_, err := ix.InsertBatch(ctx, entries)
		require.NoError(t, err)

		size, err := ix.Size(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, size)

		hits, err := ix.Search(ctx, entries[0].Vector, 10)
		require.NoError(t, err)
		assert.Empty(t, hits, "unflushed units must not be visible")

		require.NoError(t, ix.Flush(ctx))
		hits, err = ix.Search(ctx, entries[0].Vector, 10)
		require.NoError(t, err)
		assert.Len(t, hits, 10)
	})
}

func TestIndex_DimensionMismatchIsAtomic(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ix Index) {
		ctx := context.Background()
		entries := randomEntries(5, 4)
		entries[3].Vector = entries[3].Vector[:testDim-1]

		_, err := ix.InsertBatch(ctx, entries)
		require.ErrorIs(t, err, ErrDimensionMismatch)
		require.NoError(t, ix.Flush(ctx))

		size, err := ix.Size(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, size, "rejected batch leaves nothing behind")

		_, err = ix.Search(ctx, make([]float32, testDim+1), 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestIndex_TiesBrokenByInsertionOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ix Index) {
		v := deterministicVector("same", testDim)
		entries := []Entry{
			{Text: "other", Vector: deterministicVector("zzzz", testDim)},
			{Text: "first", Vector: v},
			{Text: "second", Vector: v},
			{Text: "third", Vector: v},
		}
		ids := insertAndFlush(t, ix, entries)

		hits, err := ix.Search(context.Background(), v, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, ids[1:], hitIDs(hits))
		assert.Equal(t, "first", hits[0].Text)
	})
}

func TestIndex_Deterministic(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ix Index) {
		ctx := context.Background()
		insertAndFlush(t, ix, randomEntries(200, 5))
		q := randomEntries(1, 6)[0].Vector

		a, err := ix.Search(ctx, q, 20)
		require.NoError(t, err)
		b, err := ix.Search(ctx, q, 20)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestIndex_ConcurrentSearchDuringInsert(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ix Index) {
		ctx := context.Background()
		const batch = 25
		q := randomEntries(1, 7)[0].Vector

		var wg sync.WaitGroup
		stop := make(chan struct{})
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					hits, err := ix.Search(ctx, q, 1000)
					if !assert.NoError(t, err) {
						return
					}
					if !assert.Zero(t, len(hits)%batch, "observed partial batch: %d hits", len(hits)) {
						return
					}
				}
			}()
		}

		for i := 0; i < 4; i++ {
			insertAndFlush(t, ix, randomEntries(batch, int64(100+i)))
		}
		close(stop)
		wg.Wait()
	})
}

func TestIndex_Closed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ix Index) {
		ix.Close()
		_, err := ix.InsertBatch(context.Background(), randomEntries(1, 8))
		assert.ErrorIs(t, err, ErrIndexUnavailable)
	})
}

func TestSQLiteIndex_ReopenKeepsUnits(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	entries := randomEntries(40, 9)

	first, err := OpenSQLiteFile(ctx, path, "podcast_chunks", testDim, ivf.Params{})
	require.NoError(t, err)
	insertAndFlush(t, first, entries)
	first.Close()

	second, err := OpenSQLiteFile(ctx, path, "podcast_chunks", testDim, ivf.Params{})
	require.NoError(t, err)
	defer second.Close()

	size, err := second.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, size)

	hits, err := second.Search(ctx, entries[17].Vector, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, entries[17].Text, hits[0].Text)

	ids := insertAndFlush(t, second, randomEntries(1, 10))
	assert.Greater(t, ids[0], int64(40), "new ids follow existing ones")
}

func TestSQLiteIndex_ReopenWithOtherDimension(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	ix, err := OpenSQLiteFile(ctx, path, "c", testDim, ivf.Params{})
	require.NoError(t, err)
	ix.Close()

	_, err = OpenSQLiteFile(ctx, path, "c", testDim*2, ivf.Params{})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestChromemIndex_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	entries := randomEntries(12, 11)

	first, err := OpenChromem(ctx, "podcast_chunks", testDim, dir)
	require.NoError(t, err)
	insertAndFlush(t, first, entries)
	first.Close()

	second, err := OpenChromem(ctx, "podcast_chunks", testDim, dir)
	require.NoError(t, err)
	defer second.Close()

	size, err := second.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, size)

	hits, err := second.Search(ctx, entries[5].Vector, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, entries[5].Text, hits[0].Text)

	ids := insertAndFlush(t, second, randomEntries(1, 12))
	assert.Equal(t, int64(13), ids[0])

	_, err = OpenChromem(ctx, "podcast_chunks", testDim+1, dir)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
