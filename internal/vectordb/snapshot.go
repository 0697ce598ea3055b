package vectordb

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ziadkadry99/podcast-rag/internal/vectordb/ivf"
)

// snapshot is an immutable view of the flushed units. Positions are in id
// order, so ivf position ties resolve to the lower id.
type snapshot struct {
	ids     []int64
	texts   []string
	vectors [][]float32 // unit length
	index   *ivf.Index
}

func (s *snapshot) len() int { return len(s.ids) }

// annCore holds the in-process IVF state shared by the memory and sqlite
// backends. Searches read the current snapshot without locking; Flush
// builds a new snapshot from the old one plus the pending units and swaps
// it in atomically.
type annCore struct {
	name   string
	dim    int
	params ivf.Params

	current atomic.Pointer[snapshot]
	closed  atomic.Bool

	mu      sync.Mutex
	pending snapshot
}

func newANNCore(name string, dim int, params ivf.Params) *annCore {
	c := &annCore{name: name, dim: dim, params: params}
	c.current.Store(&snapshot{index: ivf.Build(nil, params)})
	return c
}

func (c *annCore) Name() string   { return c.name }
func (c *annCore) Dimension() int { return c.dim }

// stage appends already persisted units to the pending set.
func (c *annCore) stage(ids []int64, entries []Entry) {
	for i, e := range entries {
		c.pending.ids = append(c.pending.ids, ids[i])
		c.pending.texts = append(c.pending.texts, e.Text)
		c.pending.vectors = append(c.pending.vectors, ivf.Normalize(e.Vector))
	}
}

func (c *annCore) storedLocked() int {
	return c.current.Load().len() + c.pending.len()
}

// flushLocked publishes pending units. Callers hold c.mu.
func (c *annCore) flushLocked() {
	if c.pending.len() == 0 {
		return
	}
	old := c.current.Load()
	next := &snapshot{
		ids:     slices.Concat(old.ids, c.pending.ids),
		texts:   slices.Concat(old.texts, c.pending.texts),
		vectors: slices.Concat(old.vectors, c.pending.vectors),
	}
	next.index = ivf.Build(next.vectors, c.params)
	c.current.Store(next)
	c.pending = snapshot{}
}

func (c *annCore) search(_ context.Context, vec []float32, k int) ([]Hit, error) {
	if c.closed.Load() {
		return nil, unavailable("search", errIndexClosed)
	}
	if err := CheckQuery(c.dim, vec); err != nil {
		return nil, err
	}
	snap := c.current.Load()
	if k <= 0 || snap.len() == 0 {
		return []Hit{}, nil
	}

	results := snap.index.Search(ivf.Normalize(vec), k)
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{ID: snap.ids[r.Pos], Text: snap.texts[r.Pos], Score: r.Score}
	}
	return hits, nil
}
