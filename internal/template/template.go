package template

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/hupe1980/histostore/container"
	"github.com/hupe1980/histostore/internal/fs"
	"github.com/hupe1980/histostore/ndarray"
)

const (
	binsGroup      = "bins"
	templatesGroup = "templates"
	axisNameAttr   = "name"

	// DateLayout formats the default "date" metadata entry.
	DateLayout = "20060102_15:04:05"
)

var (
	// ErrArgumentMismatch is returned when parallel inputs disagree in length
	// or an input cannot be stored.
	ErrArgumentMismatch = errors.New("template: argument mismatch")
	// ErrMissingKey is returned when a requested histogram is absent.
	ErrMissingKey = errors.New("template: missing key")
)

// Template is a decoded histogram template.
type Template struct {
	Bins           [][]float64
	AxisNames      []string
	Histograms     []*ndarray.Array
	HistogramNames []string
	Metadata       map[string]any
}

// DefaultMetadata returns the metadata written when the caller supplies none.
func DefaultMetadata(now time.Time) map[string]any {
	return map[string]any{
		"version": "0.0",
		"date":    now.Format(DateLayout),
	}
}

// EncodeOptions configures Encode.
type EncodeOptions struct {
	// HistogramNames defaults to "0", "1", ... when nil.
	HistogramNames []string
	// AxisNames defaults to "" per axis when nil.
	AxisNames []string
	// Metadata defaults to DefaultMetadata(time.Now()) when nil.
	Metadata map[string]any
	// ValidateShape checks that histogram i has one dimension per axis with
	// len(bins[d])-1 cells.
	ValidateShape bool
	Compression   container.Compression
	FileSystem    fs.FileSystem
	Logger        *slog.Logger
}

// Encode writes a template container at path, replacing any existing file.
// All argument checks run before the file is created; on any failure no
// container is left at path.
func Encode(path string, bins [][]float64, hists []*ndarray.Array, opts EncodeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	names, err := histogramNames(hists, opts.HistogramNames)
	if err != nil {
		return err
	}
	axisNames, err := axisNamesFor(bins, opts.AxisNames)
	if err != nil {
		return err
	}
	md := opts.Metadata
	if md == nil {
		md = DefaultMetadata(time.Now())
	}
	attrs, err := scalarAttrs(md)
	if err != nil {
		return err
	}
	for i, h := range hists {
		if h == nil {
			return fmt.Errorf("%w: histogram %q is nil", ErrArgumentMismatch, names[i])
		}
	}
	if opts.ValidateShape {
		if err := validateShapes(bins, hists, names); err != nil {
			return err
		}
	}

	w, err := container.Create(path,
		container.WithCompression(opts.Compression),
		container.WithFileSystem(opts.FileSystem),
	)
	if err != nil {
		return err
	}
	if err := writeTemplate(w.Root(), bins, axisNames, hists, names, attrs); err != nil {
		_ = w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	logger.Debug("template encoded",
		slog.String("path", path),
		slog.Int("axes", len(bins)),
		slog.Int("histograms", len(hists)),
	)
	return nil
}

func histogramNames(hists []*ndarray.Array, names []string) ([]string, error) {
	if names == nil {
		names = make([]string, len(hists))
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
		return names, nil
	}
	if len(names) != len(hists) {
		return nil, fmt.Errorf("%w: %d histograms but %d names", ErrArgumentMismatch, len(hists), len(names))
	}
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		if err := container.ValidateName(n); err != nil {
			return nil, fmt.Errorf("%w: histogram %d: %w", ErrArgumentMismatch, i, err)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: duplicate histogram name %q", ErrArgumentMismatch, n)
		}
		seen[n] = struct{}{}
	}
	return names, nil
}

func axisNamesFor(bins [][]float64, names []string) ([]string, error) {
	if names == nil {
		return make([]string, len(bins)), nil
	}
	if len(names) != len(bins) {
		return nil, fmt.Errorf("%w: %d axes but %d axis names", ErrArgumentMismatch, len(bins), len(names))
	}
	return names, nil
}

// scalarAttrs converts metadata to attributes in sorted key order so that
// identical inputs produce identical containers.
func scalarAttrs(md map[string]any) ([]container.Attr, error) {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]container.Attr, 0, len(keys))
	for _, k := range keys {
		v, err := container.ValueOf(md[k])
		if err != nil {
			return nil, fmt.Errorf("%w: metadata %q: %w", ErrArgumentMismatch, k, err)
		}
		attrs = append(attrs, container.Attr{Name: k, Value: v})
	}
	return attrs, nil
}

func validateShapes(bins [][]float64, hists []*ndarray.Array, names []string) error {
	for i, h := range hists {
		shape := h.Shape()
		if len(shape) != len(bins) {
			return fmt.Errorf("%w: histogram %q has %d dimensions for %d axes",
				ErrArgumentMismatch, names[i], len(shape), len(bins))
		}
		for d, edges := range bins {
			if shape[d] != len(edges)-1 {
				return fmt.Errorf("%w: histogram %q has %d cells on axis %d with %d edges",
					ErrArgumentMismatch, names[i], shape[d], d, len(edges))
			}
		}
	}
	return nil
}

func writeTemplate(root *container.GroupWriter, bins [][]float64, axisNames []string,
	hists []*ndarray.Array, names []string, attrs []container.Attr) error {
	for _, a := range attrs {
		if err := root.SetAttr(a.Name, a.Value); err != nil {
			return err
		}
	}

	binsG, err := root.CreateGroup(binsGroup)
	if err != nil {
		return err
	}
	for i, edges := range bins {
		ds, err := binsG.WriteDataset(strconv.Itoa(i), container.Float64, []int{len(edges)}, container.EncodeFloat64s(edges))
		if err != nil {
			return err
		}
		if err := ds.SetAttr(axisNameAttr, container.StringValue(axisNames[i])); err != nil {
			return err
		}
	}

	tmplG, err := root.CreateGroup(templatesGroup)
	if err != nil {
		return err
	}
	for i, h := range hists {
		if _, err := tmplG.WriteDataset(names[i], container.Float64, h.Shape(), container.EncodeFloat64s(h.Data())); err != nil {
			return err
		}
	}
	return nil
}

// DecodeOptions configures Decode.
type DecodeOptions struct {
	// HistogramNames selects histograms by name. When nil every histogram is
	// read in container order.
	HistogramNames []string
	Logger         *slog.Logger
}

// Decode reads a template container. The container is closed before return.
func Decode(path string, opts DecodeOptions) (*Template, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	f, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := decode(f.Root(), opts.HistogramNames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("template decoded",
		slog.String("path", path),
		slog.Int("axes", len(t.Bins)),
		slog.Int("histograms", len(t.Histograms)),
	)
	return t, nil
}

// DecodeMetadata reads only the root attributes of a template container.
func DecodeMetadata(path string) (map[string]any, error) {
	f, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return attrMap(f.Root().Attrs()), nil
}

func decode(root *container.Group, names []string) (*Template, error) {
	t := &Template{Metadata: attrMap(root.Attrs())}

	if err := readAxes(root, t); err != nil {
		return nil, err
	}
	if err := readHistograms(root, names, t); err != nil {
		return nil, err
	}
	return t, nil
}

func attrMap(attrs []container.Attr) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, a := range attrs {
		out[a.Name] = a.Value.Any()
	}
	return out
}

type axisEntry struct {
	index int
	name  string
}

func readAxes(root *container.Group, t *Template) error {
	binsG, err := root.Group(binsGroup)
	if errors.Is(err, container.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var entries []axisEntry
	for _, name := range binsG.DatasetNames() {
		idx, err := strconv.Atoi(name)
		if err != nil || idx < 0 {
			continue
		}
		entries = append(entries, axisEntry{index: idx, name: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	for i, e := range entries {
		ds, err := binsG.Dataset(e.name)
		if err != nil {
			return err
		}
		edges, err := ds.ReadFloat64s()
		if err != nil {
			return err
		}
		axisName := fmt.Sprintf("axis%d", i)
		if v, ok := ds.Attr(axisNameAttr); ok {
			if s, isStr := v.Str(); isStr {
				axisName = s
			} else {
				axisName = v.String()
			}
		}
		t.Bins = append(t.Bins, edges)
		t.AxisNames = append(t.AxisNames, axisName)
	}
	return nil
}

func readHistograms(root *container.Group, names []string, t *Template) error {
	tmplG, err := root.Group(templatesGroup)
	if errors.Is(err, container.ErrNotFound) {
		if len(names) > 0 {
			return fmt.Errorf("%w: %s (no %s group)", ErrMissingKey, names[0], templatesGroup)
		}
		return nil
	}
	if err != nil {
		return err
	}

	if names == nil {
		names = tmplG.DatasetNames()
	}
	for _, name := range names {
		ds, err := tmplG.Dataset(name)
		if errors.Is(err, container.ErrNotFound) || errors.Is(err, container.ErrInvalidName) {
			return fmt.Errorf("%w: %s", ErrMissingKey, name)
		}
		if err != nil {
			return err
		}
		h, err := readArray(ds)
		if err != nil {
			return err
		}
		t.Histograms = append(t.Histograms, h)
		t.HistogramNames = append(t.HistogramNames, name)
	}
	return nil
}

func readArray(ds *container.Dataset) (*ndarray.Array, error) {
	values, err := ds.ReadFloat64s()
	if err != nil {
		return nil, err
	}
	return ndarray.New(ds.Shape(), values)
}
