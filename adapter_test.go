package histostore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/hupe1980/histostore/ndarray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistdd struct {
	bins [][]float64
	axes []string
	hist *ndarray.Array
}

func (h *fakeHistdd) BinEdges() [][]float64     { return h.bins }
func (h *fakeHistdd) AxisNames() []string       { return h.axes }
func (h *fakeHistdd) Histogram() *ndarray.Array { return h.hist }

type fakeBuilder struct{}

func (fakeBuilder) NewHistdd(bins [][]float64, axisNames []string, hist *ndarray.Array) (Histdd, error) {
	return &fakeHistdd{bins: bins, axes: axisNames, hist: hist}, nil
}

type fakeAxis struct {
	title string
	edges []float64
}

func (a fakeAxis) Title() string    { return a.title }
func (a fakeAxis) Edges() []float64 { return a.edges }

type fakeObject struct {
	name  string
	class string
	axes  []NativeAxis
	data  *ndarray.Array
}

func (o fakeObject) Name() string                      { return o.name }
func (o fakeObject) InheritsFrom(class string) bool    { return o.class == class }
func (o fakeObject) Axes() []NativeAxis                { return o.axes }
func (o fakeObject) Contents() (*ndarray.Array, error) { return o.data, nil }

type fakeNativeFile struct {
	objects []NativeObject
	closed  bool
}

func (f *fakeNativeFile) Objects() ([]NativeObject, error) { return f.objects, nil }
func (f *fakeNativeFile) Close() error {
	f.closed = true
	return nil
}

type fakeNativeReader struct {
	files map[string]*fakeNativeFile
}

func (r fakeNativeReader) Open(path string) (NativeFile, error) {
	f, ok := r.files[path]
	if !ok {
		return nil, errors.New("no such native file")
	}
	return f, nil
}

func withCapabilities(t *testing.T, b HistddBuilder, r NativeReader) {
	t.Helper()
	RegisterHistddBuilder(b)
	RegisterNativeReader(r)
	t.Cleanup(func() {
		RegisterHistddBuilder(nil)
		RegisterNativeReader(nil)
	})
}

func TestCapabilityMissing(t *testing.T) {
	withCapabilities(t, nil, nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "tmpl.hsc")
	require.NoError(t, EncodeTemplate(path, testBins(), []*ndarray.Array{testHist(t, 0)}))

	assert.Empty(t, Capabilities())

	_, err := TemplateToHistdd(path, "")
	assert.ErrorIs(t, err, ErrCapabilityMissing)

	err = HistddToTemplate(filepath.Join(dir, "out.hsc"), nil, nil)
	assert.ErrorIs(t, err, ErrCapabilityMissing)
	assert.NoFileExists(t, filepath.Join(dir, "out.hsc"))

	err = NativeToTemplate("in.root", filepath.Join(dir, "out.hsc"), nil)
	assert.ErrorIs(t, err, ErrCapabilityMissing)

	err = TemplateToNative(path, nil, "out.root")
	assert.ErrorIs(t, err, ErrCapabilityMissing)

	// Core operations stay available.
	_, err = DecodeTemplate(path)
	assert.NoError(t, err)
}

func TestHistddConversion(t *testing.T) {
	withCapabilities(t, fakeBuilder{}, nil)
	assert.Equal(t, []string{"multihist"}, Capabilities())

	dir := t.TempDir()
	path := filepath.Join(dir, "tmpl.hsc")
	hists := []Histdd{
		&fakeHistdd{bins: testBins(), axes: []string{"e", "r"}, hist: testHist(t, 0)},
		&fakeHistdd{bins: testBins(), axes: []string{"e", "r"}, hist: testHist(t, 100)},
	}
	require.NoError(t, HistddToTemplate(path, hists, []string{"sig", "bkg"}))

	h, err := TemplateToHistdd(path, "bkg")
	require.NoError(t, err)
	assert.Equal(t, testBins(), h.BinEdges())
	assert.Equal(t, []string{"e", "r"}, h.AxisNames())
	assert.True(t, testHist(t, 100).Equal(h.Histogram()))

	h, err = TemplateToHistdd(path, "")
	require.NoError(t, err)
	assert.True(t, testHist(t, 0).Equal(h.Histogram()))

	_, err = TemplateToHistdd(path, "nope")
	assert.ErrorIs(t, err, ErrMissingKey)

	err = HistddToTemplate(path, hists, []string{"only-one"})
	assert.ErrorIs(t, err, ErrArgumentMismatch)

	err = HistddToTemplate(path, nil, nil)
	assert.ErrorIs(t, err, ErrArgumentMismatch)
}

func TestNativeToTemplate(t *testing.T) {
	axes := []NativeAxis{
		fakeAxis{title: "energy", edges: []float64{0, 1, 2}},
		fakeAxis{title: "radius", edges: []float64{-1, 0, 1, 2}},
	}
	file := &fakeNativeFile{objects: []NativeObject{
		fakeObject{name: "sig", class: "TH1", axes: axes, data: testHist(t, 0)},
		fakeObject{name: "tree", class: "TTree"},
		fakeObject{name: "bkg", class: "TH1", axes: axes, data: testHist(t, 7)},
	}}
	withCapabilities(t, nil, fakeNativeReader{files: map[string]*fakeNativeFile{"in.root": file}})

	dir := t.TempDir()

	t.Run("all histograms", func(t *testing.T) {
		out := filepath.Join(dir, "all.hsc")
		require.NoError(t, NativeToTemplate("in.root", out, nil))
		assert.True(t, file.closed)

		tmpl, err := DecodeTemplate(out)
		require.NoError(t, err)
		assert.Equal(t, []string{"sig", "bkg"}, tmpl.HistogramNames)
		assert.Equal(t, []string{"energy", "radius"}, tmpl.AxisNames)
		assert.Equal(t, testBins(), tmpl.Bins)
	})

	t.Run("by name", func(t *testing.T) {
		out := filepath.Join(dir, "named.hsc")
		require.NoError(t, NativeToTemplate("in.root", out, []string{"bkg"}))

		tmpl, err := DecodeTemplate(out)
		require.NoError(t, err)
		assert.Equal(t, []string{"bkg"}, tmpl.HistogramNames)
		assert.True(t, testHist(t, 7).Equal(tmpl.Histograms[0]))
	})

	t.Run("bad names", func(t *testing.T) {
		out := filepath.Join(dir, "bad.hsc")
		err := NativeToTemplate("in.root", out, []string{"missing", "tree"})
		assert.ErrorIs(t, err, ErrMissingKey)
		assert.ErrorIs(t, err, ErrArgumentMismatch)
		assert.NoFileExists(t, out)
	})

	t.Run("unknown file", func(t *testing.T) {
		err := NativeToTemplate("other.root", filepath.Join(dir, "x.hsc"), nil)
		assert.Error(t, err)
	})
}

func TestUnimplemented(t *testing.T) {
	withCapabilities(t, nil, fakeNativeReader{})

	assert.ErrorIs(t, TemplateToNative("t.hsc", nil, "out.root"), ErrUnimplemented)
	assert.ErrorIs(t, CombineTemplates([]string{"a.hsc", "b.hsc"}, []string{"h", "h"}, "out.hsc", "h", nil), ErrUnimplemented)
	assert.ErrorIs(t, ConcatenateToys([]string{"a.hsc"}, "out.hsc", true), ErrUnimplemented)
	assert.ErrorIs(t, ConcatenateFits([]string{"a.hsc"}, "out.hsc"), ErrUnimplemented)
}
