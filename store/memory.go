package store

import (
	"context"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/snapsweep/model"
)

// Compile time check to ensure Memory satisfies the VectorStore interface.
var _ VectorStore = (*Memory)(nil)

type memoryRow struct {
	hash      model.ContentHash
	embedding []float32
	meta      model.Metadata
}

// Memory is an in-memory implementation of VectorStore. Entries get a
// dense uint32 row id in insertion order; tombstoned rows are tracked
// in a roaring bitmap so deleted-state scans stay cheap.
//
// Suitable for indexes that fit in memory. Use SaveSnapshot /
// LoadSnapshot for durability.
type Memory struct {
	mu      sync.RWMutex
	rows    []memoryRow
	byHash  map[model.ContentHash]uint32
	deleted *roaring.Bitmap
	dim     int // fixed by the first inserted embedding
	closed  bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byHash:  make(map[model.ContentHash]uint32),
		deleted: roaring.New(),
	}
}

// Upsert inserts or updates entries in a single atomic batch.
func (m *Memory) Upsert(ctx context.Context, ids []model.ContentHash, embeddings [][]float32, metadatas []model.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(metadatas) != len(ids) || (embeddings != nil && len(embeddings) != len(ids)) {
		return ErrArgLength
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	embAt := func(i int) []float32 {
		if embeddings == nil {
			return nil
		}
		return embeddings[i]
	}

	// Validate the whole batch before mutating anything, so a failed
	// batch never leaves partial state behind.
	dim := m.dim
	for i, id := range ids {
		emb := embAt(i)
		if row, ok := m.byHash[id]; ok {
			if emb != nil && !slices.Equal(emb, m.rows[row].embedding) {
				return ErrImmutableEmbedding
			}
			continue
		}
		if emb == nil {
			return ErrMissingEmbedding
		}
		if dim == 0 {
			dim = len(emb)
		} else if len(emb) != dim {
			return &ErrDimensionMismatch{Expected: dim, Actual: len(emb)}
		}
	}

	for i, id := range ids {
		if rowID, ok := m.byHash[id]; ok {
			m.rows[rowID].meta = metadatas[i]
			m.setDeleted(rowID, metadatas[i].Deleted)
			continue
		}
		rowID := uint32(len(m.rows))
		m.rows = append(m.rows, memoryRow{
			hash:      id,
			embedding: slices.Clone(embAt(i)),
			meta:      metadatas[i],
		})
		m.byHash[id] = rowID
		m.dim = dim
		m.setDeleted(rowID, metadatas[i].Deleted)
	}

	return nil
}

func (m *Memory) setDeleted(rowID uint32, deleted bool) {
	if deleted {
		m.deleted.Add(rowID)
	} else {
		m.deleted.Remove(rowID)
	}
}

// Get returns entries matching ids and filter, in row (insertion)
// order. A nil ids slice selects all entries.
func (m *Memory) Get(ctx context.Context, ids []model.ContentHash, filter *FilterSet, limit int, include Include) (GetResult, error) {
	if err := ctx.Err(); err != nil {
		return GetResult{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return GetResult{}, ErrClosed
	}

	var selected []uint32
	if ids == nil {
		selected = make([]uint32, len(m.rows))
		for i := range m.rows {
			selected[i] = uint32(i)
		}
	} else {
		for _, id := range ids {
			if rowID, ok := m.byHash[id]; ok {
				selected = append(selected, rowID)
			}
		}
		slices.Sort(selected)
		selected = slices.Compact(selected)
	}

	var result GetResult
	for _, rowID := range selected {
		row := &m.rows[rowID]
		if !filter.Matches(row.hash, row.meta) {
			continue
		}
		result.IDs = append(result.IDs, row.hash)
		if include.Embeddings {
			result.Embeddings = append(result.Embeddings, slices.Clone(row.embedding))
		}
		if include.Metadatas {
			result.Metadatas = append(result.Metadatas, row.meta)
		}
		if limit > 0 && len(result.IDs) >= limit {
			break
		}
	}

	return result, nil
}

// IDsPresent reports which of the given ids exist, tombstoned or not.
func (m *Memory) IDsPresent(ctx context.Context, ids []model.ContentHash) (map[model.ContentHash]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	present := make(map[model.ContentHash]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := m.byHash[id]; ok {
			present[id] = struct{}{}
		}
	}

	return present, nil
}

// IDs returns the ids of all entries matching the filter, in row order.
func (m *Memory) IDs(ctx context.Context, filter *FilterSet) ([]model.ContentHash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	var ids []model.ContentHash
	for i := range m.rows {
		if filter.Matches(m.rows[i].hash, m.rows[i].meta) {
			ids = append(ids, m.rows[i].hash)
		}
	}

	return ids, nil
}

// Len returns the number of entries, including tombstoned ones.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rows)
}

// DeletedCount returns the number of tombstoned entries.
func (m *Memory) DeletedCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.deleted.GetCardinality()
}

// Dimension returns the fixed embedding dimension, or 0 before the
// first insert.
func (m *Memory) Dimension() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.dim
}

// Close releases the store. Further calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
