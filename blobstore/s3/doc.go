// Package s3 provides a BlobStore backed by AWS S3 using the AWS SDK
// v2. Large snapshot uploads go through the s3 transfer manager.
package s3
