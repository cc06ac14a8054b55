// Package distance provides float32 vector similarity kernels used by
// the mining scanner. Cosine similarity is computed from raw vectors,
// so callers do not need to pre-normalize embeddings.
package distance
