package vectordb

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/podcast-rag/internal/db"
	"github.com/ziadkadry99/podcast-rag/internal/vectordb/ivf"
)

// SQLiteIndex persists units in SQLite and serves searches from an
// in-process IVF index rebuilt on Flush and on open.
type SQLiteIndex struct {
	*annCore
	db         *db.DB
	collection *db.Collection
	ownsDB     bool
}

// OpenSQLite opens the named collection in database, creating it with dim
// when absent. Reopening never recreates the collection; a stored
// dimension different from dim is an ErrDimensionMismatch. Previously
// stored units are immediately searchable.
func OpenSQLite(ctx context.Context, database *db.DB, name string, dim int, params ivf.Params) (*SQLiteIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dim)
	}
	nlist := params.NList
	if nlist <= 0 {
		nlist = ivf.DefaultNList
	}

	coll, err := database.EnsureCollection(ctx, name, dim, nlist)
	if err != nil {
		return nil, unavailable("open collection", err)
	}
	if coll.Dimension != dim {
		return nil, fmt.Errorf("%w: collection %q was created with %d dimensions, embedder produces %d",
			ErrDimensionMismatch, name, coll.Dimension, dim)
	}

	s := &SQLiteIndex{
		annCore:    newANNCore(name, dim, params),
		db:         database,
		collection: coll,
	}

	err = database.EachUnit(ctx, coll.ID, func(u db.Unit) error {
		vec, err := DecodeVector(u.Embedding)
		if err != nil {
			return fmt.Errorf("unit %d: %w", u.ID, err)
		}
		if len(vec) != dim {
			return fmt.Errorf("%w: stored unit %d has %d dimensions", ErrDimensionMismatch, u.ID, len(vec))
		}
		s.stage([]int64{u.ID}, []Entry{{Text: u.Text, Vector: vec}})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading collection %q: %w", name, err)
	}
	s.flushLocked()

	return s, nil
}

// OpenSQLiteFile opens a database file and the named collection in it. The
// index closes the database on Close.
func OpenSQLiteFile(ctx context.Context, path, name string, dim int, params ivf.Params) (*SQLiteIndex, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, unavailable("open database", err)
	}
	s, err := OpenSQLite(ctx, database, name, dim, params)
	if err != nil {
		database.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

func (s *SQLiteIndex) Size(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, unavailable("size", errIndexClosed)
	}
	n, err := s.db.CountUnits(ctx, s.collection.ID)
	if err != nil {
		return 0, unavailable("size", err)
	}
	return n, nil
}

func (s *SQLiteIndex) InsertBatch(ctx context.Context, entries []Entry) ([]int64, error) {
	if err := CheckBatch(s.dim, entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	texts := make([]string, len(entries))
	blobs := make([][]byte, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
		blobs[i] = EncodeVector(e.Vector)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return nil, unavailable("insert", errIndexClosed)
	}

	ids, err := s.db.InsertUnits(ctx, s.collection.ID, texts, blobs)
	if err != nil {
		return nil, unavailable("insert", err)
	}
	s.stage(ids, entries)
	return ids, nil
}

func (s *SQLiteIndex) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return unavailable("flush", errIndexClosed)
	}
	s.flushLocked()
	return nil
}

func (s *SQLiteIndex) Search(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	return s.search(ctx, vec, k)
}

func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return nil
	}
	s.closed.Store(true)
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
