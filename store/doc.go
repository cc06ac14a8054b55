// Package store defines the vector store the snapsweep core runs
// against: key-value storage of embeddings and metadata keyed by
// content hash, with explicit predicate filtering.
//
// The Memory implementation keeps everything resident and can be
// persisted as a compressed, self-describing snapshot through a
// blobstore backend.
package store
