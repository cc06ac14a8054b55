// Package mining finds the globally highest-scoring near-duplicate
// pairs in a set of embeddings without materializing the full N x N
// similarity matrix.
//
// The scanner walks the corpus in query x corpus blocks and keeps only
// each row's local top-k candidates; a fixed-capacity min-heap retains
// the best maxPairs candidates seen overall. Memory is bounded by the
// block size and the heap capacity, independent of corpus size. The
// local top-k retention is an intentional approximation: a pair can be
// missed when a row's block-local top-k is dominated by other
// neighbors.
package mining
