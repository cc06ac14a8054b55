// Package imaging loads and validates image files for embedding.
// Decoding failures are per-file errors; a corrupt image never fails a
// whole batch.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"

	// Registered decoders for the common image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Image is a loaded image ready for embedding: the raw file bytes plus
// the decoded geometry. Raw bytes are kept because the embedding
// service consumes the original encoding.
type Image struct {
	Path   string
	Data   []byte
	Format string
	Width  int
	Height int
}

// Size returns the in-memory footprint of the loaded image in bytes.
func (img Image) Size() int64 {
	return int64(len(img.Data))
}

// DecodeError indicates a single path could not be loaded or decoded.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DecodeError struct {
	Path  string
	cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.cause)
}

func (e *DecodeError) Unwrap() error { return e.cause }

// Decoder loads a single image from a path.
type Decoder interface {
	Decode(ctx context.Context, path string) (Image, error)
}

// Compile time check to ensure FileDecoder satisfies the Decoder interface.
var _ Decoder = (*FileDecoder)(nil)

// FileDecoder reads images from the local filesystem and validates
// them with the stdlib image decoders (jpeg, png, gif).
type FileDecoder struct{}

// NewFileDecoder creates a filesystem-backed decoder.
func NewFileDecoder() *FileDecoder {
	return &FileDecoder{}
}

// Decode loads and validates one image. Unreadable or corrupt files
// yield a *DecodeError.
func (d *FileDecoder) Decode(ctx context.Context, path string) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, &DecodeError{Path: path, cause: err}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, &DecodeError{Path: path, cause: err}
	}

	return Image{
		Path:   path,
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
