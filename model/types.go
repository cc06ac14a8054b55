package model

import (
	"fmt"
	"time"
)

// ContentHash is the stable identity of a tracked image, derived from
// its file bytes. It is the primary key in the vector store and is
// independent of the filesystem path.
type ContentHash string

// Metadata is the mutable per-entry state stored alongside an
// embedding. The embedding itself is immutable once written; path and
// tombstone fields may change across reconciliations.
type Metadata struct {
	Path      string     `json:"path"`
	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Entry is a full index record: identity, embedding and metadata.
type Entry struct {
	Hash      ContentHash
	Embedding []float32
	Metadata  Metadata
}

// PairCandidate is a scored pair of row indices produced during
// mining. Left < Right under the canonical row order, so a pair is
// never represented in both orientations. Candidates are ephemeral and
// never persisted.
type PairCandidate struct {
	Score float32
	Left  int
	Right int
}

// Key packs the canonical (Left, Right) identity into a single uint64
// for cheap membership checks.
func (c PairCandidate) Key() uint64 {
	return uint64(uint32(c.Left))<<32 | uint64(uint32(c.Right))
}

// String returns a string representation of the candidate.
func (c PairCandidate) String() string {
	return fmt.Sprintf("Pair(%d,%d:%.4f)", c.Left, c.Right, c.Score)
}

// Pair is the user-facing mining result: a similarity score and the
// paths of the two images, highest scores first in a result list.
type Pair struct {
	Score float32
	PathA string
	PathB string
}

// Canonicalize returns the candidate for (score, i, j) with the row
// indices in canonical order.
func Canonicalize(score float32, i, j int) PairCandidate {
	if i > j {
		i, j = j, i
	}
	return PairCandidate{Score: score, Left: i, Right: j}
}
