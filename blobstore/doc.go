// Package blobstore is the storage abstraction for containers and shard sets
// that do not live on the local file system.
//
// Shards produced by many independent jobs are often uploaded to object
// storage; the aggregator lists them through a BlobStore and opens each one
// with container.OpenBlob.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, mmap reads, temp-file-and-rename writes
//   - MemoryStore: in-memory, for tests and in-process pipelines
//   - s3.Store: Amazon S3 (range reads, multipart uploads)
//   - minio.Store: MinIO and other S3-compatible stores
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Writable blobs must publish nothing until Close succeeds, and nothing at
// all after Abort.
package blobstore
