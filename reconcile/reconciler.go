package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/snapsweep/embedding"
	"github.com/hupe1980/snapsweep/imaging"
	"github.com/hupe1980/snapsweep/model"
	"github.com/hupe1980/snapsweep/resource"
	"github.com/hupe1980/snapsweep/store"
)

// DefaultBatchCount is the number of embedding batches a reconciliation
// splits new items into. Batching bounds peak memory (decoded images
// and embeddings in flight) and provides natural progress/cancellation
// points; batch boundaries carry no correctness semantics.
const DefaultBatchCount = 10

// EmbedError indicates the embedding function failed for one batch.
// The batch's items are not inserted; previously committed batches
// remain.
//
// The original underlying error can be accessed via errors.Unwrap.
type EmbedError struct {
	Batch int
	Items int
	cause error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embed batch %d (%d items): %v", e.Batch, e.Items, e.cause)
}

func (e *EmbedError) Unwrap() error { return e.cause }

// Report summarizes one reconciliation run. Partial failures are
// collected, not fatal: Warnings holds per-item decode failures and
// per-batch embed failures.
type Report struct {
	New       int
	Moved     int
	Unchanged int
	Failed    int
	Warnings  []error
}

// Options configures a Reconciler.
type Options struct {
	// BatchCount is the number of embedding batches new items are
	// split into. If 0, defaults to DefaultBatchCount.
	BatchCount int

	// Resources bounds decode concurrency and in-flight image memory.
	// May be nil.
	Resources *resource.Controller
}

// Reconciler classifies the desired (path -> hash) state against the
// store and drives incremental embedding for new items only.
type Reconciler struct {
	vs       store.VectorStore
	embedder embedding.Embedder
	decoder  imaging.Decoder
	opts     Options
}

// NewReconciler creates a reconciler over the given collaborators.
func NewReconciler(vs store.VectorStore, embedder embedding.Embedder, decoder imaging.Decoder, opts Options) *Reconciler {
	if opts.BatchCount <= 0 {
		opts.BatchCount = DefaultBatchCount
	}
	return &Reconciler{
		vs:       vs,
		embedder: embedder,
		decoder:  decoder,
		opts:     opts,
	}
}

// Reconcile brings the store in line with target. It is idempotent:
// a second run with the same target and unchanged files performs no
// insertions and no metadata updates.
//
// Store failures are fatal and abort the run; already-committed
// batches and updates remain (no global rollback). Decode and embed
// failures are collected into the report.
func (r *Reconciler) Reconcile(ctx context.Context, target map[string]model.ContentHash) (Report, error) {
	var report Report

	hashes := make([]model.ContentHash, 0, len(target))
	paths := make([]string, 0, len(target))
	for p, h := range target {
		paths = append(paths, p)
		hashes = append(hashes, h)
	}

	existing, err := r.vs.IDsPresent(ctx, hashes)
	if err != nil {
		return report, fmt.Errorf("reconcile: probe store: %w", err)
	}

	// Entries whose stored path is no longer a desired path have been
	// moved (or resurrected): correct the path and clear the tombstone,
	// never touching the embedding.
	movedFilter := (&store.FilterSet{}).
		And(store.HashIn(hashes)).
		And(store.PathNotIn(paths))
	movedIDs, err := r.vs.IDs(ctx, movedFilter)
	if err != nil {
		return report, fmt.Errorf("reconcile: detect moves: %w", err)
	}

	if len(movedIDs) > 0 {
		inverse := make(map[model.ContentHash]string, len(target))
		for p, h := range target {
			inverse[h] = p
		}

		metas := make([]model.Metadata, len(movedIDs))
		for i, id := range movedIDs {
			metas[i] = model.Metadata{Path: inverse[id], Deleted: false}
		}
		if err := r.vs.Upsert(ctx, movedIDs, nil, metas); err != nil {
			return report, fmt.Errorf("reconcile: update moved: %w", err)
		}
		report.Moved = len(movedIDs)
	}

	var newPaths []string
	for p, h := range target {
		if _, ok := existing[h]; !ok {
			newPaths = append(newPaths, p)
		}
	}
	sort.Strings(newPaths)

	report.Unchanged = len(target) - len(newPaths) - report.Moved

	if err := r.embedNew(ctx, target, newPaths, &report); err != nil {
		return report, err
	}

	return report, nil
}

// embedNew embeds and inserts new items in BatchCount bounded batches.
func (r *Reconciler) embedNew(ctx context.Context, target map[string]model.ContentHash, newPaths []string, report *Report) error {
	if len(newPaths) == 0 {
		return nil
	}

	batchSize := (len(newPaths) + r.opts.BatchCount - 1) / r.opts.BatchCount

	for batch := 0; batch*batchSize < len(newPaths); batch++ {
		// A batch boundary is a consistent checkpoint: committed
		// batches stay committed when the caller cancels here.
		if err := ctx.Err(); err != nil {
			return err
		}

		start := batch * batchSize
		end := min(start+batchSize, len(newPaths))

		images, warnings, err := r.decodeBatch(ctx, newPaths[start:end])
		report.Warnings = append(report.Warnings, warnings...)
		report.Failed += len(warnings)
		if err != nil {
			return err
		}

		if len(images) == 0 {
			continue
		}

		held := int64(0)
		for _, img := range images {
			held += img.Size()
		}

		if err := r.opts.Resources.WaitEmbed(ctx); err != nil {
			r.opts.Resources.ReleaseMemory(held)
			return err
		}

		vectors, err := r.embedder.Embed(ctx, images)
		if err != nil {
			r.opts.Resources.ReleaseMemory(held)
			report.Warnings = append(report.Warnings, &EmbedError{Batch: batch, Items: len(images), cause: err})
			report.Failed += len(images)
			continue
		}

		ids := make([]model.ContentHash, len(images))
		metas := make([]model.Metadata, len(images))
		for i, img := range images {
			ids[i] = target[img.Path]
			metas[i] = model.Metadata{Path: img.Path, Deleted: false}
		}

		err = r.vs.Upsert(ctx, ids, vectors, metas)
		r.opts.Resources.ReleaseMemory(held)
		if err != nil {
			return fmt.Errorf("reconcile: insert batch %d: %w", batch, err)
		}
		report.New += len(images)
	}

	return nil
}

// decodeBatch decodes one batch with bounded fan-out, preserving the
// input path order in the result. Per-item failures become warnings;
// only cancellation is returned as an error.
func (r *Reconciler) decodeBatch(ctx context.Context, paths []string) ([]imaging.Image, []error, error) {
	decoded := make([]*imaging.Image, len(paths))
	var warnings []error
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := r.opts.Resources.AcquireDecode(gctx); err != nil {
				return err
			}
			img, err := r.decoder.Decode(gctx, path)
			r.opts.Resources.ReleaseDecode()

			if err != nil {
				mu.Lock()
				warnings = append(warnings, err)
				mu.Unlock()
				return nil
			}

			if err := r.opts.Resources.AcquireMemory(gctx, img.Size()); err != nil {
				return err
			}
			decoded[i] = &img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Fan-out aborted (cancellation): drop whatever was decoded.
		for _, img := range decoded {
			if img != nil {
				r.opts.Resources.ReleaseMemory(img.Size())
			}
		}
		return nil, warnings, err
	}

	images := make([]imaging.Image, 0, len(decoded))
	for _, img := range decoded {
		if img != nil {
			images = append(images, *img)
		}
	}

	return images, warnings, nil
}
