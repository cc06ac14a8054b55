package store

import "github.com/hupe1980/snapsweep/model"

// Op is the predicate kind of a Filter. The store deliberately models
// filtering as a closed enum of predicate values rather than a query
// language.
type Op int

const (
	// OpDeletedEqual matches entries whose tombstone flag equals Bool.
	OpDeletedEqual Op = iota
	// OpHashIn matches entries whose content hash is in Hashes.
	OpHashIn
	// OpPathNotIn matches entries whose stored path is not in Paths.
	OpPathNotIn
)

// Filter is a single predicate over an entry's identity and metadata.
type Filter struct {
	Op     Op
	Bool   bool
	Hashes map[model.ContentHash]struct{}
	Paths  map[string]struct{}
}

// Matches checks if the entry matches this filter.
func (f *Filter) Matches(hash model.ContentHash, meta model.Metadata) bool {
	switch f.Op {
	case OpDeletedEqual:
		return meta.Deleted == f.Bool
	case OpHashIn:
		_, ok := f.Hashes[hash]
		return ok
	case OpPathNotIn:
		_, ok := f.Paths[meta.Path]
		return !ok
	default:
		return false
	}
}

// FilterSet is a conjunction of filters. A nil FilterSet matches
// everything.
type FilterSet struct {
	Filters []Filter
}

// Matches checks if the entry matches all filters in the set.
func (fs *FilterSet) Matches(hash model.ContentHash, meta model.Metadata) bool {
	if fs == nil {
		return true
	}
	for i := range fs.Filters {
		if !fs.Filters[i].Matches(hash, meta) {
			return false
		}
	}
	return true
}

// And returns a new set with f appended.
func (fs *FilterSet) And(f Filter) *FilterSet {
	if fs == nil {
		return &FilterSet{Filters: []Filter{f}}
	}
	return &FilterSet{Filters: append(append([]Filter(nil), fs.Filters...), f)}
}

// DeletedEqual builds a tombstone-flag equality filter.
func DeletedEqual(deleted bool) Filter {
	return Filter{Op: OpDeletedEqual, Bool: deleted}
}

// HashIn builds a hash set-inclusion filter.
func HashIn(hashes []model.ContentHash) Filter {
	set := make(map[model.ContentHash]struct{}, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}
	return Filter{Op: OpHashIn, Hashes: set}
}

// PathNotIn builds a path set-exclusion filter.
func PathNotIn(paths []string) Filter {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return Filter{Op: OpPathNotIn, Paths: set}
}
