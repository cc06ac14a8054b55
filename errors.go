package snapsweep

import (
	"errors"
)

var (
	// ErrNilStore is returned when an Analyzer is constructed without a
	// vector store.
	ErrNilStore = errors.New("vector store must not be nil")

	// ErrNilEmbedder is returned when an Analyzer is constructed without
	// an embedder.
	ErrNilEmbedder = errors.New("embedder must not be nil")

	// ErrClosed is returned when an operation is called on a closed
	// Analyzer.
	ErrClosed = errors.New("analyzer is closed")

	// ErrSnapshotUnsupported is returned when Snapshot is called on an
	// Analyzer whose vector store is not the in-memory implementation.
	ErrSnapshotUnsupported = errors.New("snapshot requires the in-memory store")
)
