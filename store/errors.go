package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an id is not present in the store.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("store closed")

	// ErrImmutableEmbedding is returned when an upsert carries an
	// embedding that differs from the one already stored under the same
	// content hash. Embeddings are immutable after creation; only
	// metadata may change.
	ErrImmutableEmbedding = errors.New("embedding is immutable")

	// ErrMissingEmbedding is returned when a new id is inserted without
	// an embedding.
	ErrMissingEmbedding = errors.New("missing embedding for new entry")

	// ErrArgLength is returned when the ids, embeddings and metadatas
	// arguments of a batch operation have mismatched lengths.
	ErrArgLength = errors.New("mismatched argument lengths")
)

// ErrDimensionMismatch indicates a vector dimensionality mismatch
// against the store's fixed dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
