package vectordb

import (
	"context"

	"github.com/ziadkadry99/podcast-rag/internal/vectordb/ivf"
)

// MemoryIndex keeps units in process memory only. Ids start at 1.
type MemoryIndex struct {
	*annCore
	nextID int64
}

// NewMemoryIndex creates an empty in-memory collection.
func NewMemoryIndex(name string, dim int, params ivf.Params) *MemoryIndex {
	return &MemoryIndex{annCore: newANNCore(name, dim, params), nextID: 1}
}

func (m *MemoryIndex) Size(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return 0, unavailable("size", errIndexClosed)
	}
	return m.storedLocked(), nil
}

func (m *MemoryIndex) InsertBatch(_ context.Context, entries []Entry) ([]int64, error) {
	if err := CheckBatch(m.dim, entries); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return nil, unavailable("insert", errIndexClosed)
	}

	ids := make([]int64, len(entries))
	for i := range entries {
		ids[i] = m.nextID
		m.nextID++
	}
	m.stage(ids, entries)
	return ids, nil
}

func (m *MemoryIndex) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return unavailable("flush", errIndexClosed)
	}
	m.flushLocked()
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	return m.search(ctx, vec, k)
}

func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed.Store(true)
	return nil
}
