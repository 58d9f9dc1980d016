package blobstore

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedDisabled(t *testing.T) {
	store := NewMemoryStore()
	assert.Same(t, BlobStore(store), RateLimited(store, 0))
	assert.Same(t, BlobStore(store), RateLimited(store, -1))
}

func TestRateLimitedReads(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	data := bytes.Repeat([]byte("x"), 4096)
	require.NoError(t, inner.Put(ctx, "shard", data))

	store := RateLimited(inner, 1000)
	blob, err := store.Open(ctx, "shard")
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()
	assert.Equal(t, int64(len(data)), blob.Size())

	// The initial burst is served at once.
	buf := make([]byte, 1000)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)

	// The bucket is empty now; half a second of budget does not fit a short deadline.
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = blob.ReadAt(short, make([]byte, 500), 1000)
	assert.Error(t, err)

	// Reads above the burst are charged in steps rather than rejected.
	slow, cancel2 := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel2()
	_, err = blob.ReadAt(slow, make([]byte, 2500), 0)
	assert.Error(t, err)
}

func TestRateLimitedReadRange(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, inner.Put(ctx, "shard", []byte("histogram payload")))

	store := RateLimited(inner, 1<<20)
	blob, err := store.Open(ctx, "shard")
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()

	rc, err := blob.ReadRange(ctx, 10, 7)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "payload", string(got))

	_, err = store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"shard"}, names)
}
