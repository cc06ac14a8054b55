package snapsweep_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/snapsweep"
	"github.com/hupe1980/snapsweep/blobstore"
	"github.com/hupe1980/snapsweep/imaging"
	"github.com/hupe1980/snapsweep/mining"
	"github.com/hupe1980/snapsweep/model"
	"github.com/hupe1980/snapsweep/store"
)

// stubEmbedder returns a fixed vector per path so similarity between
// test images is fully controlled.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (e *stubEmbedder) Dimension() int { return 4 }

func (e *stubEmbedder) Embed(_ context.Context, images []imaging.Image) ([][]float32, error) {
	out := make([][]float32, len(images))
	for i, img := range images {
		vec, ok := e.vectors[img.Path]
		if !ok {
			return nil, errors.New("no vector for " + img.Path)
		}
		out[i] = vec
	}
	return out, nil
}

type stubHasher struct {
	table map[string]model.ContentHash
}

func (h *stubHasher) HashFiles(ctx context.Context, paths []string) (map[string]model.ContentHash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make(map[string]model.ContentHash)
	var failures []error
	for _, p := range paths {
		if hash, ok := h.table[p]; ok {
			result[p] = hash
		} else {
			failures = append(failures, errors.New("hash "+p+": no such file"))
		}
	}
	return result, errors.Join(failures...)
}

type stubDecoder struct{}

func (stubDecoder) Decode(ctx context.Context, path string) (imaging.Image, error) {
	if err := ctx.Err(); err != nil {
		return imaging.Image{}, err
	}
	return imaging.Image{Path: path, Data: []byte(path)}, nil
}

func newTestAnalyzer(t *testing.T, vs store.VectorStore) *snapsweep.Analyzer {
	t.Helper()

	emb := &stubEmbedder{vectors: map[string][]float32{
		"a.jpg": {1, 0, 0, 0},
		"b.jpg": {0.98, 0.19899748, 0, 0}, // cos with a.jpg = 0.98
		"c.jpg": {0, 0, 1, 0},
	}}
	h := &stubHasher{table: map[string]model.ContentHash{
		"a.jpg": "HA",
		"b.jpg": "HB",
		"c.jpg": "HC",
	}}

	a, err := snapsweep.New(vs, emb,
		snapsweep.WithHasher(h),
		snapsweep.WithDecoder(stubDecoder{}),
		snapsweep.WithMiningParams(mining.MinerParams{
			ScanParams: mining.ScanParams{SimilarityThreshold: 0.9},
			Stat:       func(string) bool { return true },
		}),
	)
	require.NoError(t, err)
	return a
}

func TestNewValidation(t *testing.T) {
	emb := &stubEmbedder{}

	_, err := snapsweep.New(nil, emb)
	assert.ErrorIs(t, err, snapsweep.ErrNilStore)

	_, err = snapsweep.New(store.NewMemory(), nil)
	assert.ErrorIs(t, err, snapsweep.ErrNilEmbedder)
}

func TestAnalyzerUpdateAndMine(t *testing.T) {
	ctx := context.Background()
	vs := store.NewMemory()
	a := newTestAnalyzer(t, vs)
	defer a.Close()

	report, err := a.UpdateIndex(ctx, []string{"a.jpg", "b.jpg", "c.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.New)
	assert.Equal(t, 0, report.Failed)

	pairs, err := a.FindNearDuplicates(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.InDelta(t, 0.98, pairs[0].Score, 1e-3)
	assert.Equal(t, "a.jpg", pairs[0].PathA)
	assert.Equal(t, "b.jpg", pairs[0].PathB)
}

func TestAnalyzerUpdateReportsHashFailures(t *testing.T) {
	ctx := context.Background()
	a := newTestAnalyzer(t, store.NewMemory())
	defer a.Close()

	report, err := a.UpdateIndex(ctx, []string{"a.jpg", "ghost.jpg"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.New)
	assert.Equal(t, 1, report.Failed)
	assert.NotEmpty(t, report.Warnings)
}

func TestAnalyzerMarkDeleted(t *testing.T) {
	ctx := context.Background()
	vs := store.NewMemory()
	a := newTestAnalyzer(t, vs)
	defer a.Close()

	_, err := a.UpdateIndex(ctx, []string{"a.jpg", "b.jpg", "c.jpg"})
	require.NoError(t, err)

	report, err := a.MarkDeleted(ctx, []string{"b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Marked)

	// Tombstoned entries no longer participate in mining.
	pairs, err := a.FindNearDuplicates(ctx)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestAnalyzerSnapshotRoundtrip(t *testing.T) {
	ctx := context.Background()
	vs := store.NewMemory()
	a := newTestAnalyzer(t, vs)
	defer a.Close()

	_, err := a.UpdateIndex(ctx, []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)

	bs := blobstore.NewMemoryStore()
	require.NoError(t, a.Snapshot(ctx, bs, "index.snap"))

	emb := &stubEmbedder{vectors: map[string][]float32{}}
	reopened, err := snapsweep.Open(ctx, bs, "index.snap", emb,
		snapsweep.WithMiningParams(mining.MinerParams{
			ScanParams: mining.ScanParams{SimilarityThreshold: 0.9},
			Stat:       func(string) bool { return true },
		}))
	require.NoError(t, err)
	defer reopened.Close()

	pairs, err := reopened.FindNearDuplicates(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.InDelta(t, 0.98, pairs[0].Score, 1e-3)
}

func TestAnalyzerClose(t *testing.T) {
	ctx := context.Background()
	a := newTestAnalyzer(t, store.NewMemory())

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "idempotent")

	_, err := a.UpdateIndex(ctx, []string{"a.jpg"})
	assert.ErrorIs(t, err, snapsweep.ErrClosed)

	_, err = a.FindNearDuplicates(ctx)
	assert.ErrorIs(t, err, snapsweep.ErrClosed)

	_, err = a.MarkDeleted(ctx, []string{"a.jpg"})
	assert.ErrorIs(t, err, snapsweep.ErrClosed)

	err = a.Snapshot(ctx, blobstore.NewMemoryStore(), "x")
	assert.ErrorIs(t, err, snapsweep.ErrClosed)
}

func TestAnalyzerMetrics(t *testing.T) {
	ctx := context.Background()
	vs := store.NewMemory()

	metrics := &snapsweep.BasicMetricsCollector{}
	emb := &stubEmbedder{vectors: map[string][]float32{"a.jpg": {1, 0, 0, 0}}}
	a, err := snapsweep.New(vs, emb,
		snapsweep.WithHasher(&stubHasher{table: map[string]model.ContentHash{"a.jpg": "HA"}}),
		snapsweep.WithDecoder(stubDecoder{}),
		snapsweep.WithMiningParams(mining.MinerParams{Stat: func(string) bool { return true }}),
		snapsweep.WithMetricsCollector(metrics),
	)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.UpdateIndex(ctx, []string{"a.jpg"})
	require.NoError(t, err)
	_, err = a.FindNearDuplicates(ctx)
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.UpdateCount)
	assert.Equal(t, int64(1), stats.ItemsNew)
	assert.Equal(t, int64(1), stats.MineCount)
	assert.Equal(t, int64(0), stats.UpdateErrors)
}
