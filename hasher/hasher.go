// Package hasher derives content hashes from file bytes. The hash is
// the stable identity of an image, independent of its path, and serves
// as the primary key in the vector store.
package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/snapsweep/model"
)

// ContentHasher maps paths to content hashes. Collision-free for
// practical purposes; hashes are used as primary keys.
type ContentHasher interface {
	// HashFiles hashes the given paths. Unreadable files are omitted
	// from the result; their failures are joined into the returned
	// error alongside the partial result.
	HashFiles(ctx context.Context, paths []string) (map[string]model.ContentHash, error)
}

// Compile time check to ensure SHA256 satisfies the ContentHasher interface.
var _ ContentHasher = (*SHA256)(nil)

// SHA256 hashes file contents with SHA-256, fanning out over a bounded
// number of workers.
type SHA256 struct {
	workers int
}

// NewSHA256 creates a hasher with the given worker count.
// If workers <= 0, defaults to GOMAXPROCS.
func NewSHA256(workers int) *SHA256 {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &SHA256{workers: workers}
}

// HashFiles hashes all paths in parallel. The result maps each
// readable path to its hex digest; per-file failures do not abort the
// batch.
func (h *SHA256) HashFiles(ctx context.Context, paths []string) (map[string]model.ContentHash, error) {
	result := make(map[string]model.ContentHash, len(paths))
	var failures []error
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			digest, err := hashFile(path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Errorf("hash %s: %w", path, err))
				return nil
			}
			result[path] = digest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, errors.Join(failures...)
}

func hashFile(path string) (model.ContentHash, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", err
	}

	return model.ContentHash(hex.EncodeToString(sum.Sum(nil))), nil
}
