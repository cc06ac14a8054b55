package snapsweep

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/snapsweep/blobstore"
	"github.com/hupe1980/snapsweep/embedding"
	"github.com/hupe1980/snapsweep/mining"
	"github.com/hupe1980/snapsweep/model"
	"github.com/hupe1980/snapsweep/reconcile"
	"github.com/hupe1980/snapsweep/store"
)

// Analyzer is the top-level entry point: it keeps an image index in a
// vector store and mines it for near-duplicate pairs.
//
// All methods are safe for concurrent use if the underlying store is.
type Analyzer struct {
	vs       store.VectorStore
	embedder embedding.Embedder
	opts     options

	reconciler *reconcile.Reconciler
	deleter    *reconcile.SoftDeleteManager

	closed atomic.Bool
}

// New creates an Analyzer over the given vector store and embedder.
// Hasher and decoder default to local-filesystem implementations;
// override them with options for testing or remote sources.
func New(vs store.VectorStore, embedder embedding.Embedder, optFns ...Option) (*Analyzer, error) {
	if vs == nil {
		return nil, ErrNilStore
	}
	if embedder == nil {
		return nil, ErrNilEmbedder
	}

	opts := applyOptions(optFns)

	return &Analyzer{
		vs:       vs,
		embedder: embedder,
		opts:     opts,
		reconciler: reconcile.NewReconciler(vs, embedder, opts.decoder, reconcile.Options{
			BatchCount: opts.batchCount,
			Resources:  opts.resources,
		}),
		deleter: reconcile.NewSoftDeleteManager(vs, opts.hasher),
	}, nil
}

// Open loads an index snapshot from the blob store and builds an
// Analyzer around it.
func Open(ctx context.Context, bs blobstore.BlobStore, name string, embedder embedding.Embedder, optFns ...Option) (*Analyzer, error) {
	start := time.Now()
	m, err := store.LoadSnapshot(ctx, bs, name)

	opts := applyOptions(optFns)
	opts.metricsCollector.RecordSnapshot(time.Since(start), err)
	opts.logger.LogSnapshot(ctx, name, err)
	if err != nil {
		return nil, err
	}

	return New(m, embedder, optFns...)
}

// UpdateIndex brings the index in line with the given image paths.
// New content is embedded and inserted; moved or renamed files get a
// metadata update only; unchanged files are untouched. Per-file hash
// and decode failures land in the report, store failures are fatal.
//
// Paths are taken as-is; callers walk directories themselves.
func (a *Analyzer) UpdateIndex(ctx context.Context, paths []string) (reconcile.Report, error) {
	var report reconcile.Report
	if a.closed.Load() {
		return report, ErrClosed
	}

	start := time.Now()
	report, err := a.updateIndex(ctx, paths)

	a.opts.metricsCollector.RecordUpdateIndex(report.New, report.Moved, report.Failed, time.Since(start), err)
	a.opts.logger.LogUpdateIndex(ctx, report.New, report.Moved, report.Unchanged, report.Failed, err)

	return report, err
}

func (a *Analyzer) updateIndex(ctx context.Context, paths []string) (reconcile.Report, error) {
	var report reconcile.Report

	target, hashErr := a.opts.hasher.HashFiles(ctx, paths)
	if hashErr != nil {
		if len(target) == 0 && ctx.Err() != nil {
			return report, hashErr
		}
		report.Warnings = append(report.Warnings, hashErr)
		report.Failed = len(paths) - len(target)
	}

	rep, err := a.reconciler.Reconcile(ctx, target)
	rep.Failed += report.Failed
	rep.Warnings = append(report.Warnings, rep.Warnings...)

	return rep, err
}

// FindNearDuplicates scans all non-deleted index entries and returns
// the highest-scoring near-duplicate pairs, best first. Pairs whose
// files have disappeared since indexing are filtered out.
func (a *Analyzer) FindNearDuplicates(ctx context.Context) ([]model.Pair, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}

	start := time.Now()
	pairs, err := mining.NewDuplicateMiner(a.vs, a.opts.miningParams).Mine(ctx)

	a.opts.metricsCollector.RecordMine(len(pairs), time.Since(start), err)
	a.opts.logger.LogMine(ctx, len(pairs), err)

	return pairs, err
}

// MarkDeleted tombstones the index entries for the given paths without
// removing embeddings. A later UpdateIndex resurrects an entry if the
// same content reappears anywhere.
func (a *Analyzer) MarkDeleted(ctx context.Context, paths []string) (reconcile.SoftDeleteReport, error) {
	if a.closed.Load() {
		return reconcile.SoftDeleteReport{}, ErrClosed
	}

	start := time.Now()
	report, err := a.deleter.MarkDeleted(ctx, paths)

	a.opts.metricsCollector.RecordMarkDeleted(report.Marked, time.Since(start), err)
	a.opts.logger.LogMarkDeleted(ctx, report.Marked, report.Skipped, err)

	return report, err
}

// Snapshot persists the index as a single blob. Only the in-memory
// store supports snapshots; other stores handle their own durability.
func (a *Analyzer) Snapshot(ctx context.Context, bs blobstore.BlobStore, name string, optFns ...store.SnapshotOption) error {
	if a.closed.Load() {
		return ErrClosed
	}

	m, ok := a.vs.(*store.Memory)
	if !ok {
		return ErrSnapshotUnsupported
	}

	start := time.Now()
	err := store.SaveSnapshot(ctx, bs, name, m, optFns...)

	a.opts.metricsCollector.RecordSnapshot(time.Since(start), err)
	a.opts.logger.LogSnapshot(ctx, name, err)

	return err
}

// Close releases the Analyzer and closes the underlying store.
// Further operations fail with ErrClosed. Close is idempotent.
func (a *Analyzer) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	return a.vs.Close()
}
