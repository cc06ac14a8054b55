// Package minio provides a BlobStore backed by MinIO or any
// S3-compatible object store reachable through the MinIO client.
package minio
