package vectordb

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch reports a vector whose length differs from the
	// collection dimension. Vectors are never truncated or padded.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrIndexUnavailable reports a backend that cannot be reached or has
	// been closed.
	ErrIndexUnavailable = errors.New("index unavailable")
)

// CheckBatch verifies that every entry has the collection dimension.
func CheckBatch(dim int, entries []Entry) error {
	for i, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %d has %d dimensions, collection has %d", ErrDimensionMismatch, i, len(e.Vector), dim)
		}
	}
	return nil
}

// CheckQuery verifies a query vector's dimension.
func CheckQuery(dim int, vec []float32) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: query has %d dimensions, collection has %d", ErrDimensionMismatch, len(vec), dim)
	}
	return nil
}

var errIndexClosed = errors.New("index closed")

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrIndexUnavailable, op, err)
}
