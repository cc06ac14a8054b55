// Package model defines the shared value types of the snapsweep core:
// content hashes, entry metadata, and the pair types produced by
// near-duplicate mining.
package model
