package container

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/histostore/blobstore"
	"github.com/hupe1980/histostore/internal/fs"
)

func fitType(t *testing.T) DType {
	t.Helper()
	vec, err := ArrayOf(Float32, 3)
	require.NoError(t, err)
	label, err := FixedString(4)
	require.NoError(t, err)
	dt, err := Packed(
		Field{Name: "mu", Type: Float64},
		Field{Name: "status", Type: Int32},
		Field{Name: "pulls", Type: vec},
		Field{Name: "label", Type: label},
	)
	require.NoError(t, err)
	return dt
}

func int32s(values ...int32) []byte {
	out := make([]byte, 0, 4*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}

func writeSample(t *testing.T, path string, opts ...Option) {
	t.Helper()
	w, err := Create(path, opts...)
	require.NoError(t, err)

	root := w.Root()
	require.NoError(t, root.SetAttr("version", StringValue("1.0")))
	require.NoError(t, root.SetAttr("toys", UintValue(500)))
	require.NoError(t, root.SetAttr("offset", IntValue(-3)))
	require.NoError(t, root.SetAttr("lumi", FloatValue(36.1)))
	require.NoError(t, root.SetAttr("blind", BoolValue(true)))

	ds, err := root.WriteDataset("bins/0", Float64, []int{4}, EncodeFloat64s([]float64{0, 1, 2, 4}))
	require.NoError(t, err)
	require.NoError(t, ds.SetAttr("name", StringValue("energy")))

	_, err = root.WriteDataset("templates/sig", Float64, []int{2, 3}, EncodeFloat64s([]float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, err)
	_, err = root.WriteDataset("counts", Int32, []int{3}, int32s(-1, 0, 7))
	require.NoError(t, err)

	rows := make([]byte, 2*fitType(t).Size())
	binary.LittleEndian.PutUint64(rows[0:], 0x3ff0000000000000) // 1.0
	copy(rows[fitType(t).Size()-4:], "ok")
	_, err = root.WriteDataset("fits/toys", fitType(t), []int{2}, rows)
	require.NoError(t, err)

	require.NoError(t, w.Close())
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.hsc")
	id := uuid.MustParse("6f1c2a8e-41b5-4d8b-9f0e-2c7a9d1e3b45")
	writeSample(t, path, WithFileID(id))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, id, f.ID())
	root := f.Root()
	assert.Equal(t, "/", root.Path())
	assert.Equal(t, []string{"bins", "templates", "counts", "fits"}, root.Names())
	assert.Equal(t, []string{"counts"}, root.DatasetNames())

	attrs := map[string]any{}
	for _, a := range root.Attrs() {
		attrs[a.Name] = a.Value.Any()
	}
	assert.Equal(t, map[string]any{
		"version": "1.0",
		"toys":    uint64(500),
		"offset":  int64(-3),
		"lumi":    36.1,
		"blind":   true,
	}, attrs)

	bins, err := root.Group("bins")
	require.NoError(t, err)
	edges, err := bins.Dataset("0")
	require.NoError(t, err)
	assert.Equal(t, "/bins/0", edges.Path())
	name, ok := edges.Attr("name")
	require.True(t, ok)
	assert.Equal(t, `"energy"`, name.String())

	sig, err := root.Dataset("templates/sig")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, sig.Shape())
	assert.Equal(t, 6, sig.Len())
	values, err := sig.ReadFloat64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, values)

	counts, err := root.Dataset("counts")
	require.NoError(t, err)
	values, err = counts.ReadFloat64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 0, 7}, values)

	toys, err := root.Dataset("fits/toys")
	require.NoError(t, err)
	assert.True(t, fitType(t).Equal(toys.Type()))
	raw, err := toys.ReadRaw()
	require.NoError(t, err)
	assert.Len(t, raw, 2*fitType(t).Size())
	_, err = toys.ReadFloat64s()
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestLookupErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.hsc")
	writeSample(t, path)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Root().Group("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.Root().Group("counts")
	assert.ErrorIs(t, err, ErrNotGroup)
	_, err = f.Root().Dataset("bins")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.Root().Dataset("")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, ok := f.Root().Attr("missing")
	assert.False(t, ok)
}

func TestCompression(t *testing.T) {
	zeros := EncodeFloat64s(make([]float64, 1000))

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.hsc")
			w, err := Create(path, WithCompression(c))
			require.NoError(t, err)
			_, err = w.Root().WriteDataset("zeros", Float64, []int{1000}, zeros)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			f, err := Open(path)
			require.NoError(t, err)
			defer f.Close()

			ds, err := f.Root().Dataset("zeros")
			require.NoError(t, err)
			assert.Equal(t, c, ds.Compression())
			if c != CompressionNone {
				assert.Less(t, ds.StoredSize(), int64(len(zeros)))
			}
			raw, err := ds.ReadRaw()
			require.NoError(t, err)
			assert.Equal(t, zeros, raw)
		})
	}
}

func TestWriterErrors(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "e.hsc"))
	require.NoError(t, err)
	root := w.Root()

	_, err = root.WriteDataset("a", Float64, []int{1}, EncodeFloat64s([]float64{1}))
	require.NoError(t, err)
	_, err = root.WriteDataset("a", Float64, []int{1}, EncodeFloat64s([]float64{1}))
	assert.ErrorIs(t, err, ErrExists)
	_, err = root.CreateGroup("a")
	assert.ErrorIs(t, err, ErrExists)
	_, err = root.WriteDataset("a/b", Float64, []int{1}, EncodeFloat64s([]float64{1}))
	assert.ErrorIs(t, err, ErrNotGroup)

	for _, name := range []string{"", ".", ".."} {
		_, err = root.CreateGroup(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	assert.ErrorIs(t, root.SetAttr("", StringValue("x")), ErrInvalidName)
	assert.Error(t, root.SetAttr("bad", Value{}))

	_, err = root.WriteDataset("short", Float64, []int{2}, EncodeFloat64s([]float64{1}))
	assert.ErrorIs(t, err, ErrSizeMismatch)
	_, err = root.WriteDataset("neg", Float64, []int{-1}, nil)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	_, err = root.WriteDataset("untyped", DType{}, []int{0}, nil)
	assert.ErrorIs(t, err, ErrInvalidType)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), ErrClosed)
	_, err = root.WriteDataset("late", Float64, []int{0}, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, w.Abort())
}

func TestBlockSizeLimit(t *testing.T) {
	assert.NoError(t, checkBlockSize("fits", 0))
	assert.NoError(t, checkBlockSize("fits", math.MaxUint32))

	err := checkBlockSize("fits", math.MaxUint32+1)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.Contains(t, err.Error(), `"fits"`)
}

func assertOnly(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Name())
	}
	assert.ElementsMatch(t, names, got)
}

func TestAbort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.hsc")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	w, err := Create(path)
	require.NoError(t, err)
	_, err = w.Root().WriteDataset("x", Float64, []int{1}, EncodeFloat64s([]float64{1}))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
	assertOnly(t, dir, "a.hsc")

	_, err = w.Root().WriteDataset("y", Float64, []int{0}, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFaultyFileSystem(t *testing.T) {
	tests := []struct {
		name  string
		fault fs.Fault
	}{
		{"write", fs.Fault{FailAfterBytes: 16}},
		{"sync", fs.Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"close", fs.Fault{FailAfterBytes: -1, FailOnClose: true}},
		{"rename", fs.Fault{FailAfterBytes: -1, FailOnRename: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			faulty := fs.NewFaultyFS(nil)
			faulty.AddRule("f.hsc", tt.fault)

			w, err := Create(filepath.Join(dir, "f.hsc"), WithFileSystem(faulty))
			require.NoError(t, err)
			_, err = w.Root().WriteDataset("x", Float64, []int{4}, EncodeFloat64s([]float64{1, 2, 3, 4}))
			require.NoError(t, err)

			assert.ErrorIs(t, w.Close(), fs.ErrInjected)
			assertOnly(t, dir)
		})
	}
}

func TestCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.hsc")
	writeSample(t, path)
	good, err := os.ReadFile(path)
	require.NoError(t, err)

	corrupt := func(t *testing.T, mutate func([]byte) []byte) string {
		t.Helper()
		data := mutate(bytes.Clone(good))
		p := filepath.Join(t.TempDir(), "bad.hsc")
		require.NoError(t, os.WriteFile(p, data, 0o644))
		return p
	}

	t.Run("index checksum", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte { b[len(b)-footerSize-1] ^= 0xff; return b })
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("truncated", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte { return b[:len(b)-3] })
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("too small", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte { return b[:10] })
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("bad magic", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte { b[0] = 'X'; return b })
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("hdf5", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte {
			h5 := make([]byte, 96)
			copy(h5, hdf5Signature)
			return h5
		})
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrHDF5)
		assert.NotErrorIs(t, err, ErrCorrupt)
	})

	t.Run("hdf5 after user block", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte {
			h5 := make([]byte, 1024+64)
			copy(h5[1024:], hdf5Signature)
			return h5
		})
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrHDF5)
	})

	t.Run("newer version", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte { binary.LittleEndian.PutUint32(b[4:8], formatVersion+1); return b })
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("payload", func(t *testing.T) {
		// The first block holds /bins/0 uncompressed after its 8-byte block header.
		p := corrupt(t, func(b []byte) []byte { b[headerSize+8+1] ^= 0xff; return b })
		f, err := Open(p)
		require.NoError(t, err)
		defer f.Close()

		ds, err := f.Root().Dataset("bins/0")
		require.NoError(t, err)
		_, err = ds.ReadFloat64s()
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	blob, err := store.Create(ctx, "runs/shard.hsc")
	require.NoError(t, err)
	w, err := NewWriter(blob, WithCompression(CompressionLZ4))
	require.NoError(t, err)
	_, err = w.Root().WriteDataset("fits/mu", Float64, []int{3}, EncodeFloat64s([]float64{0.5, 1, 1.5}))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, blob.Close())

	b, err := store.Open(ctx, "runs/shard.hsc")
	require.NoError(t, err)
	f, err := OpenBlob(ctx, b)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, w.ID(), f.ID())
	assert.Equal(t, b.Size(), f.Size())
	ds, err := f.Root().Dataset("fits/mu")
	require.NoError(t, err)
	values, err := ds.ReadFloat64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1, 1.5}, values)

	require.NoError(t, store.Put(ctx, "junk.hsc", []byte("junk")))
	junk, err := store.Open(ctx, "junk.hsc")
	require.NoError(t, err)
	_, err = OpenBlob(ctx, junk)
	assert.ErrorIs(t, err, ErrCorrupt)
}
