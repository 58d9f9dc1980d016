package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempName(t *testing.T) {
	target := filepath.Join("out", "template.hsc")
	a, b := TempName(target), TempName(target)

	assert.NotEqual(t, a, b)
	assert.Equal(t, "out", filepath.Dir(a))
	assert.True(t, strings.HasPrefix(filepath.Base(a), ".template.hsc"+TempMarker))
}

func TestAtomicFile_Commit(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "run1", "toys_00.hsc")

	f, err := CreateAtomic(nil, target)
	require.NoError(t, err)
	_, err = f.Write([]byte("shard"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	_, err = os.Stat(target)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.FileExists(t, f.TempPath())

	require.NoError(t, f.Commit())
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "shard", string(data))
	assert.NoFileExists(t, f.TempPath())

	_, err = f.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrFinished)
	assert.ErrorIs(t, f.Commit(), ErrFinished)
	assert.NoError(t, f.Discard())
}

func TestAtomicFile_Discard(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "template.hsc")
	require.NoError(t, os.WriteFile(target, []byte("previous"), 0o644))

	f, err := CreateAtomic(Default, target)
	require.NoError(t, err)
	_, err = f.Write([]byte("replacement"))
	require.NoError(t, err)
	require.NoError(t, f.Discard())
	require.NoError(t, f.Discard())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFaultyFS(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(OS{})
	ffs.AddRule("faulty", Fault{FailAfterBytes: 5})

	f, err := ffs.OpenFile(filepath.Join(dir, "faulty.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	n, err := f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.NoError(t, f.Close())

	// Files without a matching rule are untouched.
	g, err := ffs.OpenFile(filepath.Join(dir, "healthy.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = g.Write([]byte("hello world"))
	assert.NoError(t, err)
	assert.NoError(t, g.Close())
}

func TestAtomicFile_Faults(t *testing.T) {
	tests := []struct {
		name  string
		fault Fault
	}{
		{"sync", Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"close", Fault{FailAfterBytes: -1, FailOnClose: true}},
		{"rename", Fault{FailAfterBytes: -1, FailOnRename: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ffs := NewFaultyFS(nil)
			ffs.AddRule("broken", tt.fault)

			f, err := CreateAtomic(ffs, filepath.Join(dir, "broken.hsc"))
			require.NoError(t, err)
			_, err = f.Write([]byte("data"))
			require.NoError(t, err)

			assert.ErrorIs(t, f.Commit(), ErrInjected)
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}
