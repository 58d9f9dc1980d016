package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	path := filepath.Join(t.TempDir(), "mmap_test")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	n, err = m.ReadAt(make([]byte, 10), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	partial := make([]byte, 10)
	n, err = m.ReadAt(partial, 7)
	assert.Equal(t, 5, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)
}

func TestMmap_PrefetchAndClose(t *testing.T) {
	content := make([]byte, 3*os.Getpagesize()+17)
	for i := range content {
		content[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "block.hsc")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	m, err := Open(path)
	require.NoError(t, err)

	// Unaligned, overlong and out-of-range hints must not fault.
	m.Prefetch(int64(os.Getpagesize())+5, 100)
	m.Prefetch(10, int64(len(content))*2)
	m.Prefetch(int64(len(content)), 1)
	m.Prefetch(-1, 1)
	assert.Equal(t, content[4000:4010], m.Bytes()[4000:4010])

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	m.Prefetch(0, 1)

	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMmap_EmptyAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.hsc")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Size())
	assert.Nil(t, m.Bytes())
	m.Prefetch(0, 10)
	require.NoError(t, m.Close())

	_, err = Open(filepath.Join(t.TempDir(), "missing.hsc"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
