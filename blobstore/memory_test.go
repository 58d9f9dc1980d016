package blobstore

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "b")
	require.NoError(t, err)
	_, err = w.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, store.Put(ctx, "a", []byte("first")))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	blob, err := store.Open(ctx, "b")
	require.NoError(t, err)
	buf := make([]byte, 6)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "second", string(buf[:n]))

	_, err = blob.ReadAt(ctx, buf, 100)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, blob.Close())

	aborted, err := store.Create(ctx, "c")
	require.NoError(t, err)
	_, _ = aborted.Write([]byte("partial"))
	require.NoError(t, aborted.Abort())
	_, err = store.Open(ctx, "c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGlob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, name := range []string{
		"run1/shard_002.hsc",
		"run1/shard_000.hsc",
		"run1/shard_001.hsc",
		"run1/notes.txt",
		"run2/shard_000.hsc",
	} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}

	got, err := Glob(ctx, store, "run1/shard_*.hsc")
	require.NoError(t, err)
	assert.Equal(t, []string{"run1/shard_000.hsc", "run1/shard_001.hsc", "run1/shard_002.hsc"}, got)

	got, err = Glob(ctx, store, "run*/shard_000.hsc")
	require.NoError(t, err)
	assert.Equal(t, []string{"run1/shard_000.hsc", "run2/shard_000.hsc"}, got)

	_, err = Glob(ctx, store, "[")
	assert.Error(t, err)
}

func TestNewReaderAt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "blob", []byte("0123456789")))

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 3)
	n, err := NewReaderAt(ctx, blob).ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, "456", string(buf[:n]))
}

func TestMemoryStoreSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	src := []byte("shard-v1")
	require.NoError(t, store.Put(ctx, "toys_00.hsc", src))
	src[0] = 'X'

	old, err := store.Open(ctx, "toys_00.hsc")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "toys_00.hsc", []byte("shard-v2")))

	rc, err := old.ReadRange(ctx, 0, 100)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "shard-v1", string(got))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, old.Close())
	_, err = old.ReadAt(ctx, make([]byte, 1), 0)
	assert.ErrorIs(t, err, os.ErrClosed)

	require.NoError(t, store.Delete(ctx, "toys_00.hsc"))
	require.NoError(t, store.Delete(ctx, "toys_00.hsc"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreWriterLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "empty.hsc")
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), os.ErrClosed)
	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
	require.NoError(t, w.Abort())

	blob, err := store.Open(ctx, "empty.hsc")
	require.NoError(t, err)
	assert.Zero(t, blob.Size())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Open(cancelled, "empty.hsc")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = blob.ReadAt(cancelled, make([]byte, 1), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
