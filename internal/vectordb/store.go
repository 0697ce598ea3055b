// Package vectordb stores embedded transcript chunks and answers
// nearest-neighbour queries by cosine similarity.
package vectordb

import "context"

// Entry is a unit to insert: its text and embedding.
type Entry struct {
	Text   string
	Vector []float32
}

// Hit is one search result. Score is the cosine similarity in [-1, 1].
type Hit struct {
	ID    int64
	Text  string
	Score float32
}

// Index is a named collection of embedded text units with a fixed
// dimension.
//
// InsertBatch stores every entry of a batch or none of them and returns
// ids in entry order. Inserted units become searchable only after Flush.
// Search returns at most k hits ordered by descending score, ties broken
// by ascending id, and never observes a partially inserted batch. Search
// is safe for concurrent use.
type Index interface {
	// Name returns the collection name.
	Name() string

	// Dimension returns the vector dimension fixed at creation.
	Dimension() int

	// Size returns the number of stored units, flushed or not.
	Size(ctx context.Context) (int, error)

	// InsertBatch appends entries and returns their ids.
	InsertBatch(ctx context.Context, entries []Entry) ([]int64, error)

	// Flush makes every inserted unit visible to Search.
	Flush(ctx context.Context) error

	// Search returns the k units most similar to vec.
	Search(ctx context.Context, vec []float32, k int) ([]Hit, error)

	// Close releases the backend.
	Close() error
}
