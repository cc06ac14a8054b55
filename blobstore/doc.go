// Package blobstore abstracts where index snapshots are kept. A
// snapshot is written and read as a whole, so the interface deals in
// complete byte blobs rather than random-access handles.
//
// Backends: in-memory (tests), local filesystem, MinIO/S3-compatible
// object storage, and AWS S3.
package blobstore
