package vectordb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const chromemFile = "chromem.gob.gz"

// errNoEmbeddingFunc is returned if chromem ever tries to embed text
// itself. Every document and query is embedded before it reaches chromem.
var errNoEmbeddingFunc = errors.New("chromem: documents must carry precomputed embeddings")

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// ChromemIndex stores units in a chromem-go collection. chromem searches
// exhaustively, so this backend suits small corpora and tests. When dir is
// set, Flush exports the database to dir and open imports it back.
type ChromemIndex struct {
	name string
	dim  int
	dir  string

	// mu serialises Flush against Search so a batch appears all at once.
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	pending    []chromem.Document
	nextID     int64
	closed     bool
}

// OpenChromem opens or creates a chromem collection. dir may be empty for
// a purely in-memory collection.
func OpenChromem(ctx context.Context, name string, dim int, dir string) (*ChromemIndex, error) {
	c := &ChromemIndex{name: name, dim: dim, dir: dir, db: chromem.NewDB()}

	if dir != "" {
		path := filepath.Join(dir, chromemFile)
		if _, err := os.Stat(path); err == nil {
			if err := c.db.ImportFromFile(path, ""); err != nil {
				return nil, unavailable("import chromem", err)
			}
		}
	}

	col, err := c.db.GetOrCreateCollection(name, nil, noEmbedding)
	if err != nil {
		return nil, unavailable("create collection", err)
	}
	if col.Count() > 0 {
		// Ids are dense from 1, so the first unit always exists.
		first, err := col.GetByID(ctx, "1")
		if err != nil {
			return nil, unavailable("read collection", err)
		}
		if len(first.Embedding) != dim {
			return nil, fmt.Errorf("%w: collection %q was created with %d dimensions, embedder produces %d",
				ErrDimensionMismatch, name, len(first.Embedding), dim)
		}
	}
	c.collection = col
	c.nextID = int64(col.Count()) + 1
	return c, nil
}

func (c *ChromemIndex) Name() string   { return c.name }
func (c *ChromemIndex) Dimension() int { return c.dim }

func (c *ChromemIndex) Size(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, unavailable("size", errIndexClosed)
	}
	return c.collection.Count() + len(c.pending), nil
}

func (c *ChromemIndex) InsertBatch(_ context.Context, entries []Entry) ([]int64, error) {
	if err := CheckBatch(c.dim, entries); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, unavailable("insert", errIndexClosed)
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = c.nextID
		c.pending = append(c.pending, chromem.Document{
			ID:        strconv.FormatInt(c.nextID, 10),
			Content:   e.Text,
			Embedding: append([]float32(nil), e.Vector...),
		})
		c.nextID++
	}
	return ids, nil
}

func (c *ChromemIndex) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return unavailable("flush", errIndexClosed)
	}

	if len(c.pending) > 0 {
		if err := c.collection.AddDocuments(ctx, c.pending, runtime.GOMAXPROCS(0)); err != nil {
			return unavailable("add documents", err)
		}
		c.pending = nil
	}

	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating chromem dir: %w", err)
	}
	if err := c.db.ExportToFile(filepath.Join(c.dir, chromemFile), true, ""); err != nil {
		return unavailable("export chromem", err)
	}
	return nil
}

func (c *ChromemIndex) Search(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	if err := CheckQuery(c.dim, vec); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, unavailable("search", errIndexClosed)
	}

	// chromem requires nResults <= collection size.
	count := c.collection.Count()
	if k <= 0 || count == 0 {
		return []Hit{}, nil
	}
	results, err := c.collection.QueryEmbedding(ctx, vec, min(k, count), nil, nil)
	if err != nil {
		return nil, unavailable("chromem query", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		id, err := strconv.ParseInt(r.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chromem: unexpected document id %q", r.ID)
		}
		hits[i] = Hit{ID: id, Text: r.Content, Score: r.Similarity}
	}
	SortHits(hits)
	return hits, nil
}

func (c *ChromemIndex) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
