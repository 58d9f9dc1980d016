package minio

import (
	"context"
	"io"
	"testing"

	"github.com/hupe1980/histostore/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to a local MinIO instance, skipping the test when
// none is reachable.
func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()

	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	const bucket = "test-histostore"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	return NewStore(client, bucket, WithPrefix("test-prefix/")), ctx
}

func TestMinioStore_Integration(t *testing.T) {
	store, ctx := newTestStore(t)

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "toys/shard_000.hsc", data))
	t.Cleanup(func() { _ = store.Delete(ctx, "toys/shard_000.hsc") })

	blob, err := store.Open(ctx, "toys/shard_000.hsc")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	names, err := blobstore.Glob(ctx, store, "toys/shard_*.hsc")
	require.NoError(t, err)
	assert.Contains(t, names, "toys/shard_000.hsc")

	require.NoError(t, store.Delete(ctx, "toys/shard_000.hsc"))
	_, err = store.Open(ctx, "toys/shard_000.hsc")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestMinioStore_CreateAndAbort(t *testing.T) {
	store, ctx := newTestStore(t)

	wb, err := store.Create(ctx, "stream.hsc")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())
	t.Cleanup(func() { _ = store.Delete(ctx, "stream.hsc") })

	blob, err := store.Open(ctx, "stream.hsc")
	require.NoError(t, err)
	assert.Equal(t, int64(13), blob.Size())
	require.NoError(t, blob.Close())

	aborted, err := store.Create(ctx, "aborted.hsc")
	require.NoError(t, err)
	_, err = aborted.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, aborted.Abort())

	_, err = store.Open(ctx, "aborted.hsc")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStoreKeys(t *testing.T) {
	client, err := minio.New("localhost:1", &minio.Options{})
	require.NoError(t, err)

	plain := NewStore(client, "physics")
	assert.Equal(t, "toys_00.hsc", plain.key("toys_00.hsc"))
	assert.Equal(t, "toys_00.hsc", plain.name("toys_00.hsc"))

	s := NewStore(client, "physics",
		WithPrefix("/campaign-42/"),
		WithPartSize(0),
		WithUserMetadata(map[string]string{"campaign": "42"}),
	)
	assert.Equal(t, "campaign-42/run1/toys_00.hsc", s.key("run1/toys_00.hsc"))
	assert.Equal(t, "run1/toys_00.hsc", s.name("campaign-42/run1/toys_00.hsc"))

	opts := s.putOptions()
	assert.Equal(t, ContentType, opts.ContentType)
	assert.Equal(t, DefaultPartSize, opts.PartSize)
	assert.Equal(t, "42", opts.UserMetadata["campaign"])
}

func TestTranslate(t *testing.T) {
	err := translate("open", "toys_00.hsc", minio.ErrorResponse{Code: "NoSuchKey"})
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.ErrorContains(t, err, "toys_00.hsc")

	err = translate("open", "toys_00.hsc", minio.ErrorResponse{Code: "AccessDenied"})
	assert.NotErrorIs(t, err, blobstore.ErrNotFound)
	assert.ErrorContains(t, err, "minio: open toys_00.hsc")
}
