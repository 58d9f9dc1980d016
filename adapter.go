package histostore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/histostore/internal/capability"
	"github.com/hupe1980/histostore/internal/template"
	"github.com/hupe1980/histostore/ndarray"
)

// Histogram base class of the analysis framework; objects inheriting from it
// are selected by NativeToTemplate when no names are given.
const nativeHistogramClass = "TH1"

var capabilities = capability.NewRegistry()

// Histdd is a multi-dimensional histogram from an external object model.
type Histdd interface {
	BinEdges() [][]float64
	AxisNames() []string
	Histogram() *ndarray.Array
}

// HistddBuilder constructs Histdd values. It is the provider of the
// "multihist" capability.
type HistddBuilder interface {
	NewHistdd(bins [][]float64, axisNames []string, histogram *ndarray.Array) (Histdd, error)
}

// NativeReader opens analysis-framework files. It is the provider of the
// "native" capability.
type NativeReader interface {
	Open(path string) (NativeFile, error)
}

// NativeFile is an open analysis-framework file.
type NativeFile interface {
	// Objects lists the stored objects in file order.
	Objects() ([]NativeObject, error)
	Close() error
}

// NativeObject is a named object in a NativeFile.
type NativeObject interface {
	Name() string
	InheritsFrom(class string) bool
	Axes() []NativeAxis
	Contents() (*ndarray.Array, error)
}

// NativeAxis is one axis of a native histogram.
type NativeAxis interface {
	Title() string
	Edges() []float64
}

// RegisterHistddBuilder installs the provider of the multihist capability.
// Passing nil removes it.
func RegisterHistddBuilder(b HistddBuilder) {
	capabilities.Register(capability.MultiHist, b)
}

// RegisterNativeReader installs the provider of the native capability.
// Passing nil removes it.
func RegisterNativeReader(r NativeReader) {
	capabilities.Register(capability.Native, r)
}

// Capabilities lists the optional capabilities currently available.
func Capabilities() []string {
	names := capabilities.Available()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

// TemplateToHistdd loads one histogram of the template at path, together with
// the template's axes, as a Histdd. An empty histName selects the first
// histogram in container order.
func TemplateToHistdd(path, histName string) (Histdd, error) {
	builder, err := capability.Require[HistddBuilder](capabilities, capability.MultiHist)
	if err != nil {
		return nil, translateError(err)
	}

	var names []string
	if histName != "" {
		names = []string{histName}
	}
	t, err := template.Decode(path, template.DecodeOptions{HistogramNames: names})
	if err != nil {
		return nil, translateError(err)
	}
	if len(t.Histograms) == 0 {
		return nil, fmt.Errorf("%w: %s has no histograms", ErrMissingKey, path)
	}
	return builder.NewHistdd(t.Bins, t.AxisNames, t.Histograms[0])
}

// HistddToTemplate encodes hists as a template at path. The axes (edges and
// names) are taken from the first histogram. names defaults to "0", "1", ...
func HistddToTemplate(path string, hists []Histdd, names []string, opts ...Option) error {
	if _, err := capability.Require[HistddBuilder](capabilities, capability.MultiHist); err != nil {
		return translateError(err)
	}
	if len(hists) == 0 {
		return fmt.Errorf("%w: no histograms", ErrArgumentMismatch)
	}

	arrays := make([]*ndarray.Array, len(hists))
	for i, h := range hists {
		arrays[i] = h.Histogram()
	}
	opts = append(opts,
		WithAxisNames(hists[0].AxisNames()),
		WithHistogramNames(names),
	)
	return EncodeTemplate(path, hists[0].BinEdges(), arrays, opts...)
}

// NativeToTemplate converts histograms from an analysis-framework file into a
// template at templatePath. Without names every object inheriting from the
// framework's histogram base class is converted, in file order. Bin edges and
// axis names are derived from the first converted histogram's axes.
func NativeToTemplate(nativePath, templatePath string, names []string, opts ...Option) error {
	reader, err := capability.Require[NativeReader](capabilities, capability.Native)
	if err != nil {
		return translateError(err)
	}

	nf, err := reader.Open(nativePath)
	if err != nil {
		return err
	}
	defer func() { _ = nf.Close() }()

	objects, err := nf.Objects()
	if err != nil {
		return err
	}
	selected, err := selectNative(objects, names)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("%w: %s contains no histograms", ErrMissingKey, nativePath)
	}

	axes := selected[0].Axes()
	bins := make([][]float64, len(axes))
	axisNames := make([]string, len(axes))
	for i, ax := range axes {
		bins[i] = ax.Edges()
		axisNames[i] = ax.Title()
	}

	hists := make([]*ndarray.Array, len(selected))
	histNames := make([]string, len(selected))
	for i, obj := range selected {
		if hists[i], err = obj.Contents(); err != nil {
			return fmt.Errorf("%s: %w", obj.Name(), err)
		}
		histNames[i] = obj.Name()
	}

	opts = append(opts, WithAxisNames(axisNames), WithHistogramNames(histNames))
	return EncodeTemplate(templatePath, bins, hists, opts...)
}

func selectNative(objects []NativeObject, names []string) ([]NativeObject, error) {
	if len(names) == 0 {
		var out []NativeObject
		for _, obj := range objects {
			if obj.InheritsFrom(nativeHistogramClass) {
				out = append(out, obj)
			}
		}
		return out, nil
	}

	byName := make(map[string]NativeObject, len(objects))
	for _, obj := range objects {
		byName[obj.Name()] = obj
	}
	out := make([]NativeObject, 0, len(names))
	var errs []error
	for _, n := range names {
		obj, ok := byName[n]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingKey, n))
		case !obj.InheritsFrom(nativeHistogramClass):
			errs = append(errs, fmt.Errorf("%w: %s is not a histogram", ErrArgumentMismatch, n))
		default:
			out = append(out, obj)
		}
	}
	return out, errors.Join(errs...)
}
