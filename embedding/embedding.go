// Package embedding defines the embedding function the index is built
// on and ships an HTTP client for Ollama-style embedding services.
// The model itself is an external collaborator; this package only
// moves images in and fixed-dimension vectors out.
package embedding

import (
	"context"
	"fmt"

	"github.com/hupe1980/snapsweep/imaging"
)

// Embedder turns a batch of images into index-aligned embedding
// vectors. Deterministic per model version; the dimension is fixed for
// a given deployment.
type Embedder interface {
	Embed(ctx context.Context, images []imaging.Image) ([][]float32, error)
	Dimension() int
}

// ErrDimensionMismatch indicates the embedding service returned
// vectors of an unexpected dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrBatchSize indicates the service returned a different number of
// vectors than images were sent.
type ErrBatchSize struct {
	Sent     int
	Received int
}

func (e *ErrBatchSize) Error() string {
	return fmt.Sprintf("embedding batch size mismatch: sent %d images, received %d vectors", e.Sent, e.Received)
}
