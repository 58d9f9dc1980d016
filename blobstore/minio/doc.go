// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible systems (Ceph, SeaweedFS,
// Garage) without pulling in the AWS SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "physics", minioblob.WithPrefix("campaign-42"))
//	result, err := histostore.AggregateStore(ctx, store, "toys/shard_*.hsc")
//
// Streaming writes are uploaded in the background and only become visible
// when Close succeeds. Abort cancels the upload.
package minio
