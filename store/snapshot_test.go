package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/snapsweep/blobstore"
	"github.com/hupe1980/snapsweep/codec"
	"github.com/hupe1980/snapsweep/model"
)

func snapshotFixture(t *testing.T) *Memory {
	t.Helper()

	m := NewMemory()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.Upsert(context.Background(),
		[]model.ContentHash{"h1", "h2", "h3"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.5, 0.5, 0}},
		[]model.Metadata{
			{Path: "a.jpg"},
			{Path: "b.jpg", Deleted: true, DeletedAt: &now},
			{Path: "c.jpg"},
		},
	))
	return m
}

func TestSnapshotRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		opts []SnapshotOption
	}{
		{"Defaults", nil},
		{"JSONNone", []SnapshotOption{WithSnapshotCodec(codec.JSON{}), WithSnapshotCompression(CompressionNone)}},
		{"GoJSONZstd", []SnapshotOption{WithSnapshotCodec(codec.GoJSON{}), WithSnapshotCompression(CompressionZstd)}},
		{"JSONLZ4", []SnapshotOption{WithSnapshotCodec(codec.JSON{}), WithSnapshotCompression(CompressionLZ4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			bs := blobstore.NewMemoryStore()
			src := snapshotFixture(t)

			require.NoError(t, SaveSnapshot(ctx, bs, "index.snap", src, tt.opts...))

			dst, err := LoadSnapshot(ctx, bs, "index.snap")
			require.NoError(t, err)

			assert.Equal(t, src.Len(), dst.Len())
			assert.Equal(t, src.Dimension(), dst.Dimension())
			assert.Equal(t, src.DeletedCount(), dst.DeletedCount())

			res, err := dst.Get(ctx, nil, nil, 0, Include{Embeddings: true, Metadatas: true})
			require.NoError(t, err)
			assert.Equal(t, []model.ContentHash{"h1", "h2", "h3"}, res.IDs)
			assert.Equal(t, []float32{0.5, 0.5, 0}, res.Embeddings[2])
			assert.True(t, res.Metadatas[1].Deleted)
			require.NotNil(t, res.Metadatas[1].DeletedAt)
		})
	}
}

func TestSnapshotSelfDescribing(t *testing.T) {
	// The reader needs no codec or compression configuration; the
	// header carries both.
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	src := snapshotFixture(t)

	require.NoError(t, SaveSnapshot(ctx, bs, "index.snap", src,
		WithSnapshotCodec(codec.JSON{}),
		WithSnapshotCompression(CompressionLZ4)))

	dst, err := LoadSnapshot(ctx, bs, "index.snap")
	require.NoError(t, err)
	assert.Equal(t, 3, dst.Len())
}

func TestLoadSnapshotErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		bs := blobstore.NewMemoryStore()
		_, err := LoadSnapshot(ctx, bs, "missing.snap")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("BadMagic", func(t *testing.T) {
		bs := blobstore.NewMemoryStore()
		require.NoError(t, bs.Put(ctx, "junk", []byte("definitely not a snapshot")))
		_, err := LoadSnapshot(ctx, bs, "junk")
		assert.ErrorContains(t, err, "bad magic")
	})

	t.Run("Truncated", func(t *testing.T) {
		bs := blobstore.NewMemoryStore()
		src := snapshotFixture(t)
		require.NoError(t, SaveSnapshot(ctx, bs, "index.snap", src))

		data, err := bs.Get(ctx, "index.snap")
		require.NoError(t, err)
		require.NoError(t, bs.Put(ctx, "trunc", data[:len(data)-10]))

		_, err = LoadSnapshot(ctx, bs, "trunc")
		assert.Error(t, err)
	})

	t.Run("UnknownVersion", func(t *testing.T) {
		bs := blobstore.NewMemoryStore()
		src := snapshotFixture(t)
		require.NoError(t, SaveSnapshot(ctx, bs, "index.snap", src))

		data, err := bs.Get(ctx, "index.snap")
		require.NoError(t, err)
		data[4] = 99
		require.NoError(t, bs.Put(ctx, "future", data))

		_, err = LoadSnapshot(ctx, bs, "future")
		assert.ErrorContains(t, err, "unsupported snapshot version")
	})
}

func TestSnapshotEmptyStore(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	require.NoError(t, SaveSnapshot(ctx, bs, "empty.snap", NewMemory()))

	dst, err := LoadSnapshot(ctx, bs, "empty.snap")
	require.NoError(t, err)
	assert.Equal(t, 0, dst.Len())
}
