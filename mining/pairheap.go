package mining

import (
	"sort"

	"github.com/hupe1980/snapsweep/model"
)

// PairHeap is a fixed-capacity min-heap of pair candidates ordered by
// score, with pair-identity deduplication. It always holds the
// highest-scoring distinct canonical pairs offered so far, in
// O(capacity) memory and O(log capacity) per offer.
//
// Value-based backing slice, no pointer indirection. Not safe for
// concurrent use; the scanner serializes offers.
type PairHeap struct {
	capacity int
	items    []model.PairCandidate
	pos      map[uint64]int // candidate key -> index in items
}

// NewPairHeap creates a heap that retains at most capacity pairs.
func NewPairHeap(capacity int) *PairHeap {
	if capacity < 1 {
		capacity = 1
	}
	return &PairHeap{
		capacity: capacity,
		items:    make([]model.PairCandidate, 0, capacity),
		pos:      make(map[uint64]int, capacity),
	}
}

// Offer considers a candidate for retention. Self pairs are rejected.
// A candidate whose pair is already held keeps the higher of the two
// scores rather than occupying a second slot. When full, the candidate
// replaces the current minimum only if it scores higher; otherwise it
// is discarded.
//
// Returns true if the heap changed.
func (h *PairHeap) Offer(c model.PairCandidate) bool {
	if c.Left == c.Right {
		return false
	}
	if c.Left > c.Right {
		c.Left, c.Right = c.Right, c.Left
	}

	if i, ok := h.pos[c.Key()]; ok {
		if c.Score <= h.items[i].Score {
			return false
		}
		h.items[i].Score = c.Score
		h.siftDown(i) // score only ever increases here
		return true
	}

	if len(h.items) < h.capacity {
		h.items = append(h.items, c)
		h.pos[c.Key()] = len(h.items) - 1
		h.siftUp(len(h.items) - 1)
		return true
	}

	if c.Score <= h.items[0].Score {
		return false
	}
	delete(h.pos, h.items[0].Key())
	h.items[0] = c
	h.pos[c.Key()] = 0
	h.siftDown(0)
	return true
}

// Min returns the lowest-scoring retained candidate.
func (h *PairHeap) Min() (model.PairCandidate, bool) {
	if len(h.items) == 0 {
		return model.PairCandidate{}, false
	}
	return h.items[0], true
}

// Len returns the number of retained candidates.
func (h *PairHeap) Len() int { return len(h.items) }

// Drain empties the heap and returns the retained candidates sorted
// descending by score, ties broken by canonical pair order.
func (h *PairHeap) Drain() []model.PairCandidate {
	out := h.items
	h.items = nil
	h.pos = make(map[uint64]int)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Left != out[j].Left {
			return out[i].Left < out[j].Left
		}
		return out[i].Right < out[j].Right
	})

	return out
}

func (h *PairHeap) less(i, j int) bool {
	return h.items[i].Score < h.items[j].Score
}

func (h *PairHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.pos[h.items[i].Key()] = i
	h.pos[h.items[j].Key()] = j
}

func (h *PairHeap) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !h.less(i, p) {
			return
		}
		h.swap(i, p)
		i = p
	}
}

func (h *PairHeap) siftDown(i int) {
	n := len(h.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && h.less(r, l) {
			best = r
		}
		if !h.less(best, i) {
			return
		}
		h.swap(i, best)
		i = best
	}
}
