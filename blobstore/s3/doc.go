// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "physics-results",
//	    s3.WithPrefix("campaign-42/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	result, err := histostore.AggregateStore(ctx, store, "toys/shard_*.hsc")
//
// # Features
//
//   - Ranged GETs, so readers fetch only the footer, index and needed datasets
//   - Reads pinned to the ETag seen at Open; a replaced object fails with ErrObjectChanged
//   - Multipart streaming uploads for shard and template writes
//   - Automatic pagination for listing
//   - Root prefix for sharing one bucket between campaigns
package s3
