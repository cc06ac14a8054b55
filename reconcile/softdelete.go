package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/snapsweep/hasher"
	"github.com/hupe1980/snapsweep/model"
	"github.com/hupe1980/snapsweep/store"
)

// SoftDeleteReport summarizes one soft-delete run.
type SoftDeleteReport struct {
	Marked   int
	Skipped  int // paths that could not be hashed or are unknown to the store
	Warnings []error
}

// SoftDeleteManager tombstones index entries without removing the
// embedding or the entry. A later reconciliation resurrects the entry
// if the same hash reappears at any path.
type SoftDeleteManager struct {
	vs store.VectorStore
	ch hasher.ContentHasher

	// now is injectable for tests.
	now func() time.Time
}

// NewSoftDeleteManager creates a manager over the given store and
// hasher.
func NewSoftDeleteManager(vs store.VectorStore, ch hasher.ContentHasher) *SoftDeleteManager {
	return &SoftDeleteManager{
		vs:  vs,
		ch:  ch,
		now: time.Now,
	}
}

// WithClock overrides the tombstone timestamp source.
func (m *SoftDeleteManager) WithClock(now func() time.Time) *SoftDeleteManager {
	m.now = now
	return m
}

// MarkDeleted sets deleted=true with a timestamp on the entries for
// the given paths. Paths that cannot be hashed or whose hash is not in
// the store are skipped with a warning; store failures are fatal.
func (m *SoftDeleteManager) MarkDeleted(ctx context.Context, paths []string) (SoftDeleteReport, error) {
	var report SoftDeleteReport

	pathToHash, hashErr := m.ch.HashFiles(ctx, paths)
	if hashErr != nil {
		if len(pathToHash) == 0 && ctx.Err() != nil {
			return report, hashErr
		}
		report.Warnings = append(report.Warnings, hashErr)
	}
	report.Skipped = len(paths) - len(pathToHash)

	if len(pathToHash) == 0 {
		return report, nil
	}

	hashes := make([]model.ContentHash, 0, len(pathToHash))
	for _, h := range pathToHash {
		hashes = append(hashes, h)
	}
	present, err := m.vs.IDsPresent(ctx, hashes)
	if err != nil {
		return report, fmt.Errorf("soft delete: probe store: %w", err)
	}

	deletedAt := m.now()
	var ids []model.ContentHash
	var metas []model.Metadata
	for path, h := range pathToHash {
		if _, ok := present[h]; !ok {
			report.Skipped++
			continue
		}
		ids = append(ids, h)
		metas = append(metas, model.Metadata{
			Path:      path,
			Deleted:   true,
			DeletedAt: &deletedAt,
		})
	}

	if len(ids) == 0 {
		return report, nil
	}

	if err := m.vs.Upsert(ctx, ids, nil, metas); err != nil {
		return report, fmt.Errorf("soft delete: update store: %w", err)
	}
	report.Marked = len(ids)

	return report, nil
}
