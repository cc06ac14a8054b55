package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/snapsweep/model"
)

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		hash   model.ContentHash
		meta   model.Metadata
		want   bool
	}{
		{"DeletedEqualTrue", DeletedEqual(true), "h", model.Metadata{Deleted: true}, true},
		{"DeletedEqualFalse", DeletedEqual(false), "h", model.Metadata{Deleted: true}, false},
		{"HashInHit", HashIn([]model.ContentHash{"a", "b"}), "b", model.Metadata{}, true},
		{"HashInMiss", HashIn([]model.ContentHash{"a", "b"}), "c", model.Metadata{}, false},
		{"HashInEmpty", HashIn(nil), "a", model.Metadata{}, false},
		{"PathNotInHit", PathNotIn([]string{"x"}), "h", model.Metadata{Path: "y"}, true},
		{"PathNotInMiss", PathNotIn([]string{"x"}), "h", model.Metadata{Path: "x"}, false},
		{"PathNotInEmpty", PathNotIn(nil), "h", model.Metadata{Path: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.hash, tt.meta))
		})
	}
}

func TestFilterSetConjunction(t *testing.T) {
	fs := (&FilterSet{}).
		And(DeletedEqual(false)).
		And(HashIn([]model.ContentHash{"a", "b"}))

	assert.True(t, fs.Matches("a", model.Metadata{}))
	assert.False(t, fs.Matches("a", model.Metadata{Deleted: true}))
	assert.False(t, fs.Matches("c", model.Metadata{}))
}

func TestFilterSetNil(t *testing.T) {
	var fs *FilterSet
	assert.True(t, fs.Matches("anything", model.Metadata{Deleted: true}))

	// And on a nil set starts a fresh conjunction.
	fs2 := fs.And(DeletedEqual(true))
	assert.True(t, fs2.Matches("h", model.Metadata{Deleted: true}))
	assert.False(t, fs2.Matches("h", model.Metadata{}))
}

func TestFilterSetAndDoesNotMutate(t *testing.T) {
	base := (&FilterSet{}).And(DeletedEqual(false))
	_ = base.And(HashIn([]model.ContentHash{"a"}))

	assert.Len(t, base.Filters, 1, "And returns a copy")
}
