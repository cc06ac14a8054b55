package store

import (
	"context"

	"github.com/hupe1980/snapsweep/model"
)

// Include selects which per-entry data a Get materializes. Omitting
// embeddings keeps metadata-only queries cheap.
type Include struct {
	Embeddings bool
	Metadatas  bool
}

// GetResult holds the materialized entries of a Get call. The slices
// are index-aligned; Embeddings and Metadatas are nil unless requested
// via Include.
type GetResult struct {
	IDs        []model.ContentHash
	Embeddings [][]float32
	Metadatas  []model.Metadata
}

// VectorStore is key-value storage of embeddings and metadata keyed by
// content hash.
//
// Embeddings are immutable once written: an Upsert for a known id with
// a nil embedding is a metadata-only update, and an Upsert with a
// conflicting embedding fails with ErrImmutableEmbedding. The store is
// the only durable state of the system.
type VectorStore interface {
	// Upsert inserts or updates entries in a single batch. ids,
	// embeddings and metadatas must be index-aligned; embeddings may be
	// nil (or hold nil rows) for metadata-only updates of known ids.
	// The batch is applied atomically.
	Upsert(ctx context.Context, ids []model.ContentHash, embeddings [][]float32, metadatas []model.Metadata) error

	// Get returns entries matching ids and filter. A nil ids slice
	// selects all entries. limit <= 0 means no limit. Unknown ids are
	// skipped, not an error.
	Get(ctx context.Context, ids []model.ContentHash, filter *FilterSet, limit int, include Include) (GetResult, error)

	// IDsPresent reports which of the given ids exist in the store,
	// tombstoned or not.
	IDsPresent(ctx context.Context, ids []model.ContentHash) (map[model.ContentHash]struct{}, error)

	// IDs returns the ids of all entries matching the filter.
	IDs(ctx context.Context, filter *FilterSet) ([]model.ContentHash, error)

	// Close releases the store. Further calls fail with ErrClosed.
	Close() error
}
