// Package reconcile keeps the persisted index consistent with the
// current file set. Each (path, hash) pair of the desired state is
// classified as new, moved or unchanged: new items are embedded and
// inserted in bounded batches, moved items get a metadata-only path
// update, unchanged items are left alone. Embeddings are never
// recomputed for a known hash.
package reconcile
