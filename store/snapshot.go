package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/snapsweep/blobstore"
	"github.com/hupe1980/snapsweep/codec"
	"github.com/hupe1980/snapsweep/model"
)

// snapshotMagic identifies a snapsweep index snapshot.
var snapshotMagic = []byte("SSWP")

const snapshotVersion = 1

// Compression names. Snapshots record the compression in their header,
// so the setting only affects newly-written files.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

type snapshotHeader struct {
	Codec       string `json:"codec"`
	Compression string `json:"compression"`
	Count       int    `json:"count"`
	Dimension   int    `json:"dimension"`
}

type snapshotBody struct {
	IDs        []model.ContentHash `json:"ids"`
	Embeddings [][]float32         `json:"embeddings"`
	Metadatas  []model.Metadata    `json:"metadatas"`
}

type snapshotOptions struct {
	codec       codec.Codec
	compression string
}

// SnapshotOption configures snapshot writing.
type SnapshotOption func(*snapshotOptions)

// WithSnapshotCodec sets the codec for newly-written snapshots.
// If nil is passed, codec.Default is used.
func WithSnapshotCodec(c codec.Codec) SnapshotOption {
	return func(o *snapshotOptions) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithSnapshotCompression sets the compression for newly-written
// snapshots (CompressionNone, CompressionZstd or CompressionLZ4).
func WithSnapshotCompression(name string) SnapshotOption {
	return func(o *snapshotOptions) {
		o.compression = name
	}
}

// SaveSnapshot serializes the memory store and writes it as a single
// blob. The header records codec and compression, so LoadSnapshot
// needs no out-of-band configuration.
func SaveSnapshot(ctx context.Context, bs blobstore.BlobStore, name string, m *Memory, optFns ...SnapshotOption) error {
	opts := snapshotOptions{
		codec:       codec.Default,
		compression: CompressionZstd,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	m.mu.RLock()
	body := snapshotBody{
		IDs:        make([]model.ContentHash, 0, len(m.rows)),
		Embeddings: make([][]float32, 0, len(m.rows)),
		Metadatas:  make([]model.Metadata, 0, len(m.rows)),
	}
	for i := range m.rows {
		body.IDs = append(body.IDs, m.rows[i].hash)
		body.Embeddings = append(body.Embeddings, m.rows[i].embedding)
		body.Metadatas = append(body.Metadatas, m.rows[i].meta)
	}
	dim := m.dim
	m.mu.RUnlock()

	encoded, err := opts.codec.Marshal(body)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}

	compressed, err := compress(opts.compression, encoded)
	if err != nil {
		return fmt.Errorf("snapshot compress: %w", err)
	}

	header, err := codec.JSON{}.Marshal(snapshotHeader{
		Codec:       opts.codec.Name(),
		Compression: opts.compression,
		Count:       len(body.IDs),
		Dimension:   dim,
	})
	if err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(snapshotMagic)
	buf.WriteByte(snapshotVersion)
	buf.Write(binary.AppendUvarint(nil, uint64(len(header))))
	buf.Write(header)
	buf.Write(compressed)

	return bs.Put(ctx, name, buf.Bytes())
}

// LoadSnapshot reads a snapshot blob and rebuilds a memory store.
func LoadSnapshot(ctx context.Context, bs blobstore.BlobStore, name string) (*Memory, error) {
	data, err := bs.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	if len(data) < len(snapshotMagic)+1 || !bytes.Equal(data[:len(snapshotMagic)], snapshotMagic) {
		return nil, fmt.Errorf("not a snapshot: bad magic")
	}
	data = data[len(snapshotMagic):]

	if data[0] != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", data[0])
	}
	data = data[1:]

	headerLen, n := binary.Uvarint(data)
	if n <= 0 || uint64(len(data)-n) < headerLen {
		return nil, fmt.Errorf("corrupt snapshot header")
	}
	data = data[n:]

	var header snapshotHeader
	if err := (codec.JSON{}).Unmarshal(data[:headerLen], &header); err != nil {
		return nil, fmt.Errorf("snapshot header: %w", err)
	}
	data = data[headerLen:]

	c, ok := codec.ByName(header.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown snapshot codec %q", header.Codec)
	}

	encoded, err := decompress(header.Compression, data)
	if err != nil {
		return nil, fmt.Errorf("snapshot decompress: %w", err)
	}

	var body snapshotBody
	if err := c.Unmarshal(encoded, &body); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	if len(body.IDs) != len(body.Embeddings) || len(body.IDs) != len(body.Metadatas) {
		return nil, fmt.Errorf("corrupt snapshot: section lengths disagree")
	}

	m := NewMemory()
	if err := m.Upsert(ctx, body.IDs, body.Embeddings, body.Metadatas); err != nil {
		return nil, fmt.Errorf("snapshot restore: %w", err)
	}

	return m, nil
}

func compress(name string, data []byte) ([]byte, error) {
	switch name {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		out := enc.EncodeAll(data, nil)
		_ = enc.Close()
		return out, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

func decompress(name string, data []byte) ([]byte, error) {
	switch name {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}
