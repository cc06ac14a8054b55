package mining

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/snapsweep/model"
	"github.com/hupe1980/snapsweep/store"
)

func seedStore(t *testing.T, embeddings [][]float32, paths []string) *store.Memory {
	t.Helper()

	m := store.NewMemory()
	ids := make([]model.ContentHash, len(paths))
	metas := make([]model.Metadata, len(paths))
	for i, p := range paths {
		ids[i] = model.ContentHash("hash-" + p)
		metas[i] = model.Metadata{Path: p}
	}
	require.NoError(t, m.Upsert(context.Background(), ids, embeddings, metas))
	return m
}

func allExist(string) bool { return true }

func TestMinerScenario(t *testing.T) {
	// cos(e0,e1)=0.95, cos(e2,e3)=0.92, everything else below 0.5.
	m := seedStore(t, fourImageCorpus(), []string{"p0", "p1", "p2", "p3"})

	miner := NewDuplicateMiner(m, MinerParams{
		ScanParams: ScanParams{TopKPerRow: 2, SimilarityThreshold: 0.5},
		MaxPairs:   10,
		Stat:       allExist,
	})

	pairs, err := miner.Mine(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.InDelta(t, 0.95, pairs[0].Score, 1e-4)
	assert.Equal(t, "p0", pairs[0].PathA)
	assert.Equal(t, "p1", pairs[0].PathB)

	assert.InDelta(t, 0.92, pairs[1].Score, 1e-4)
	assert.Equal(t, "p2", pairs[1].PathA)
	assert.Equal(t, "p3", pairs[1].PathB)
}

func TestMinerOrderingAndSymmetry(t *testing.T) {
	m := seedStore(t, fourImageCorpus(), []string{"p0", "p1", "p2", "p3"})

	miner := NewDuplicateMiner(m, MinerParams{
		ScanParams: ScanParams{TopKPerRow: 4, SimilarityThreshold: -1},
		MaxPairs:   100,
		Stat:       allExist,
	})

	pairs, err := miner.Mine(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, pairs)

	type key struct{ a, b string }
	seen := map[key]struct{}{}
	for i, p := range pairs {
		assert.NotEqual(t, p.PathA, p.PathB, "no self pairs")
		if i > 0 {
			assert.GreaterOrEqual(t, pairs[i-1].Score, p.Score, "sorted non-increasing")
		}
		_, dup := seen[key{p.PathA, p.PathB}]
		assert.False(t, dup, "pair emitted once")
		_, flipped := seen[key{p.PathB, p.PathA}]
		assert.False(t, flipped, "pair emitted in one orientation only")
		seen[key{p.PathA, p.PathB}] = struct{}{}
	}
}

func TestMinerExcludesDeletedEntries(t *testing.T) {
	m := seedStore(t, fourImageCorpus(), []string{"p0", "p1", "p2", "p3"})

	// Tombstone p1: its pair with p0 must disappear.
	now := time.Now()
	require.NoError(t, m.Upsert(context.Background(),
		[]model.ContentHash{"hash-p1"}, nil,
		[]model.Metadata{{Path: "p1", Deleted: true, DeletedAt: &now}}))

	miner := NewDuplicateMiner(m, MinerParams{
		ScanParams: ScanParams{TopKPerRow: 2, SimilarityThreshold: 0.5},
		MaxPairs:   10,
		Stat:       allExist,
	})

	pairs, err := miner.Mine(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "p2", pairs[0].PathA)
	assert.Equal(t, "p3", pairs[0].PathB)
}

func TestMinerSkipsMalformedMetadata(t *testing.T) {
	// An entry with no path must be excluded without failing the scan.
	m := seedStore(t, fourImageCorpus(), []string{"p0", "p1", "", "p3"})

	miner := NewDuplicateMiner(m, MinerParams{
		ScanParams: ScanParams{TopKPerRow: 2, SimilarityThreshold: 0.5},
		MaxPairs:   10,
		Stat:       allExist,
	})

	pairs, err := miner.Mine(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "p0", pairs[0].PathA)
	assert.Equal(t, "p1", pairs[0].PathB)
}

func TestMinerFiltersStalePaths(t *testing.T) {
	m := seedStore(t, fourImageCorpus(), []string{"p0", "p1", "p2", "p3"})

	miner := NewDuplicateMiner(m, MinerParams{
		ScanParams: ScanParams{TopKPerRow: 2, SimilarityThreshold: 0.5},
		MaxPairs:   10,
		Stat:       func(path string) bool { return path != "p3" },
	})

	pairs, err := miner.Mine(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "p0", pairs[0].PathA)
}

func TestMinerStoreError(t *testing.T) {
	m := seedStore(t, fourImageCorpus(), []string{"p0", "p1", "p2", "p3"})
	require.NoError(t, m.Close())

	miner := NewDuplicateMiner(m, MinerParams{Stat: allExist})
	_, err := miner.Mine(context.Background())
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestRemoveStalePairs(t *testing.T) {
	pairs := []model.Pair{
		{Score: 0.9, PathA: "a", PathB: "b"},
		{Score: 0.8, PathA: "a", PathB: "gone"},
		{Score: 0.7, PathA: "gone", PathB: "b"},
	}

	got := RemoveStalePairs(pairs, func(p string) bool { return p != "gone" })
	require.Len(t, got, 1)
	assert.Equal(t, float32(0.9), got[0].Score)
}
