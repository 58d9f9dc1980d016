// Package h5 converts between HDF5 files and histostore containers.
//
// Import reads the numeric datasets of an HDF5 file, such as histogram
// templates written by h5py, together with their scalar attributes. Export
// writes the numeric datasets of a container to a new HDF5 file. Compound
// record datasets and group attributes are not carried across.
package h5

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/scigolib/hdf5"

	"github.com/hupe1980/histostore/container"
)

// ErrSkipped reports datasets or attributes that could not be converted.
// Import and Export still complete; the error lists what was left out.
var ErrSkipped = errors.New("h5: skipped")

// Import reads the HDF5 file at path into an in-memory container. Every
// dataset becomes a one-dimensional float64 dataset at the same path.
func Import(path string, opts ...container.Option) (*container.File, error) {
	src, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("h5: open %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	var buf bytes.Buffer
	w, err := container.NewWriter(&buf, opts...)
	if err != nil {
		return nil, err
	}

	var (
		walkErr error
		skipped []string
	)
	src.Walk(func(objPath string, obj hdf5.Object) {
		if walkErr != nil {
			return
		}
		ds, ok := obj.(*hdf5.Dataset)
		if !ok {
			return
		}
		name := strings.Trim(objPath, "/")
		values, err := ds.Read()
		if err != nil {
			skipped = append(skipped, name)
			return
		}
		dw, err := w.Root().WriteDataset(name, container.Float64, []int{len(values)}, container.EncodeFloat64s(values))
		if err != nil {
			walkErr = err
			return
		}
		attrs, err := ds.Attributes()
		if err != nil {
			skipped = append(skipped, name+"@*")
			return
		}
		for _, a := range attrs {
			raw, err := a.ReadValue()
			if err != nil {
				skipped = append(skipped, name+"@"+a.Name)
				continue
			}
			v, err := container.ValueOf(raw)
			if err != nil {
				skipped = append(skipped, name+"@"+a.Name)
				continue
			}
			if err := dw.SetAttr(a.Name, v); err != nil {
				walkErr = err
				return
			}
		}
	})
	if walkErr != nil {
		_ = w.Abort()
		return nil, fmt.Errorf("h5: import %s: %w", path, walkErr)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	f, err := container.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		return f, fmt.Errorf("%w: %s", ErrSkipped, strings.Join(skipped, ", "))
	}
	return f, nil
}

// Export writes the numeric datasets of f and their attributes to a new
// HDF5 file at path, replacing any existing file. Values are stored as
// float64.
func Export(f *container.File, path string) error {
	dst, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	if err != nil {
		return fmt.Errorf("h5: create %s: %w", path, err)
	}

	var skipped []string
	if err := exportGroup(dst, f.Root(), &skipped); err != nil {
		_ = dst.Close()
		return fmt.Errorf("h5: export %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("h5: close %s: %w", path, err)
	}
	if len(skipped) > 0 {
		return fmt.Errorf("%w: %s", ErrSkipped, strings.Join(skipped, ", "))
	}
	return nil
}

func exportGroup(dst *hdf5.FileWriter, g *container.Group, skipped *[]string) error {
	if g.Path() != "/" {
		if _, err := dst.CreateGroup(g.Path()); err != nil {
			return err
		}
	}
	datasets := make(map[string]struct{})
	for _, name := range g.DatasetNames() {
		datasets[name] = struct{}{}
		ds, err := g.Dataset(name)
		if err != nil {
			return err
		}
		values, err := ds.ReadFloat64s()
		if errors.Is(err, container.ErrNotNumeric) {
			*skipped = append(*skipped, ds.Path())
			continue
		}
		if err != nil {
			return err
		}
		out, err := dst.CreateDataset(ds.Path(), hdf5.Float64, []uint64{uint64(len(values))})
		if err != nil {
			return err
		}
		if err := out.Write(values); err != nil {
			return err
		}
		for _, a := range ds.Attrs() {
			if err := out.WriteAttribute(a.Name, a.Value.Any()); err != nil {
				*skipped = append(*skipped, ds.Path()+"@"+a.Name)
			}
		}
	}
	for _, name := range g.Names() {
		if _, ok := datasets[name]; ok {
			continue
		}
		child, err := g.Group(name)
		if err != nil {
			return err
		}
		if err := exportGroup(dst, child, skipped); err != nil {
			return err
		}
	}
	return nil
}
