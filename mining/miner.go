package mining

import (
	"context"
	"fmt"
	"os"

	"github.com/hupe1980/snapsweep/model"
	"github.com/hupe1980/snapsweep/store"
)

// DefaultMaxPairs bounds how many candidate pairs are retained overall.
const DefaultMaxPairs = 500000

// MinerParams configures a mining run.
type MinerParams struct {
	ScanParams

	// MaxPairs caps the number of retained (and returned) pairs.
	// If 0, defaults to DefaultMaxPairs.
	MaxPairs int

	// Stat reports whether a path still exists; mined pairs whose
	// paths have gone stale are dropped silently. If nil, the local
	// filesystem is checked.
	Stat func(path string) bool
}

// DuplicateMiner pulls non-deleted entries from the store and returns
// the highest-scoring near-duplicate pairs, best first.
type DuplicateMiner struct {
	vs     store.VectorStore
	params MinerParams
}

// NewDuplicateMiner creates a miner over the given store.
// Zero-valued params fall back to defaults.
func NewDuplicateMiner(vs store.VectorStore, params MinerParams) *DuplicateMiner {
	params.ScanParams = params.ScanParams.withDefaults()
	if params.MaxPairs <= 0 {
		params.MaxPairs = DefaultMaxPairs
	}
	if params.Stat == nil {
		params.Stat = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}
	return &DuplicateMiner{vs: vs, params: params}
}

// Mine returns at most MaxPairs distinct pairs of non-deleted entries
// with cosine similarity >= SimilarityThreshold, sorted non-increasing
// by score. Entries with malformed metadata (no path) are excluded
// from the scan rather than failing it; pairs whose paths no longer
// exist are filtered out.
func (m *DuplicateMiner) Mine(ctx context.Context) ([]model.Pair, error) {
	filter := (&store.FilterSet{}).And(store.DeletedEqual(false))

	res, err := m.vs.Get(ctx, nil, filter, 0, store.Include{Embeddings: true, Metadatas: true})
	if err != nil {
		return nil, fmt.Errorf("mining: fetch embeddings: %w", err)
	}

	// Row-align embeddings and paths, dropping malformed entries.
	embeddings := make([][]float32, 0, len(res.IDs))
	paths := make([]string, 0, len(res.IDs))
	for i := range res.IDs {
		if res.Metadatas[i].Path == "" || len(res.Embeddings[i]) == 0 {
			continue
		}
		embeddings = append(embeddings, res.Embeddings[i])
		paths = append(paths, res.Metadatas[i].Path)
	}

	heap := NewPairHeap(m.params.MaxPairs)
	scanner := NewChunkedScanner(m.params.ScanParams)

	if err := scanner.Scan(ctx, embeddings, func(c model.PairCandidate) {
		heap.Offer(c)
	}); err != nil {
		return nil, err
	}

	pairs := make([]model.Pair, 0, heap.Len())
	for _, c := range heap.Drain() {
		pairs = append(pairs, model.Pair{
			Score: c.Score,
			PathA: paths[c.Left],
			PathB: paths[c.Right],
		})
	}

	return RemoveStalePairs(pairs, m.params.Stat), nil
}

// RemoveStalePairs drops pairs where either path no longer exists.
// This is an existence check only; file contents are not re-hashed.
func RemoveStalePairs(pairs []model.Pair, stat func(path string) bool) []model.Pair {
	valid := pairs[:0]
	for _, p := range pairs {
		if stat(p.PathA) && stat(p.PathB) {
			valid = append(valid, p)
		}
	}
	return valid
}
