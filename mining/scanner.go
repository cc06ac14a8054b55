package mining

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/snapsweep/distance"
	"github.com/hupe1980/snapsweep/model"
)

// ScanParams bounds the scanner's memory/accuracy tradeoff.
type ScanParams struct {
	// TopKPerRow is how many block-local candidates each query row
	// retains. Larger values improve recall at the cost of more heap
	// offers.
	TopKPerRow int

	// QueryChunkSize and CorpusChunkSize bound the similarity block
	// materialized at any time to QueryChunkSize x CorpusChunkSize.
	QueryChunkSize  int
	CorpusChunkSize int

	// SimilarityThreshold drops candidates scoring below it.
	SimilarityThreshold float32

	// Workers is the number of blocks scanned in parallel.
	// If 0, defaults to GOMAXPROCS.
	Workers int
}

// Defaults match the tuning of the original mining pipeline.
const (
	DefaultTopKPerRow          = 100
	DefaultQueryChunkSize      = 5000
	DefaultCorpusChunkSize     = 100000
	DefaultSimilarityThreshold = 0.5
)

func (p ScanParams) withDefaults() ScanParams {
	if p.TopKPerRow <= 0 {
		p.TopKPerRow = DefaultTopKPerRow
	}
	if p.QueryChunkSize <= 0 {
		p.QueryChunkSize = DefaultQueryChunkSize
	}
	if p.CorpusChunkSize <= 0 {
		p.CorpusChunkSize = DefaultCorpusChunkSize
	}
	if p.Workers <= 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	return p
}

// ChunkedScanner iterates a corpus in query x corpus blocks, computing
// pairwise cosine similarity per block and extracting each query row's
// block-local top-k candidates.
type ChunkedScanner struct {
	params ScanParams
}

// NewChunkedScanner creates a scanner with the given parameters.
// Zero-valued fields fall back to defaults.
func NewChunkedScanner(params ScanParams) *ChunkedScanner {
	return &ChunkedScanner{params: params.withDefaults()}
}

// Scan walks all blocks and offers every surviving candidate
// (canonicalized, self-filtered, threshold-filtered) to offer. Blocks
// run in parallel; offer calls are serialized, so the sink needs no
// locking of its own. Cosine similarity is computed from raw vectors;
// callers do not pre-normalize.
//
// Cancellation is observed between blocks. No candidate from a
// completed block is lost; blocks in flight at cancellation are
// discarded. A block boundary is always a consistent checkpoint.
func (s *ChunkedScanner) Scan(ctx context.Context, embeddings [][]float32, offer func(model.PairCandidate)) error {
	n := len(embeddings)
	if n == 0 {
		return ctx.Err()
	}

	norms := distance.Norms(embeddings)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.params.Workers)

	for corpusStart := 0; corpusStart < n; corpusStart += s.params.CorpusChunkSize {
		corpusEnd := min(corpusStart+s.params.CorpusChunkSize, n)

		for queryStart := 0; queryStart < n; queryStart += s.params.QueryChunkSize {
			queryEnd := min(queryStart+s.params.QueryChunkSize, n)

			corpusStart, queryStart := corpusStart, queryStart
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}

				local := s.scanBlock(embeddings, norms, queryStart, queryEnd, corpusStart, corpusEnd)
				if len(local) == 0 {
					return nil
				}

				mu.Lock()
				defer mu.Unlock()
				for _, c := range local {
					offer(c)
				}
				return nil
			})
		}
	}

	return g.Wait()
}

// rowScore is a block-local (score, corpus row) cell used for top-k
// selection.
type rowScore struct {
	score float32
	col   int
}

// scanBlock computes one similarity block and returns its surviving
// candidates. Only this block's scores are resident at any time.
func (s *ChunkedScanner) scanBlock(embeddings [][]float32, norms []float32, queryStart, queryEnd, corpusStart, corpusEnd int) []model.PairCandidate {
	width := corpusEnd - corpusStart
	topK := min(s.params.TopKPerRow, width)

	var out []model.PairCandidate
	row := make([]rowScore, width)

	for i := queryStart; i < queryEnd; i++ {
		q := embeddings[i]
		qn := norms[i]

		for c := 0; c < width; c++ {
			j := corpusStart + c
			row[c] = rowScore{
				score: distance.CosineWithNorms(q, embeddings[j], qn, norms[j]),
				col:   j,
			}
		}

		// Deterministic local top-k: by score descending, ties by lower
		// corpus index. Stable across runs regardless of block order.
		sort.Slice(row, func(a, b int) bool {
			if row[a].score != row[b].score {
				return row[a].score > row[b].score
			}
			return row[a].col < row[b].col
		})

		for _, cell := range row[:topK] {
			if cell.col == i || cell.score < s.params.SimilarityThreshold {
				continue
			}
			out = append(out, model.Canonicalize(cell.score, i, cell.col))
		}
	}

	return out
}
