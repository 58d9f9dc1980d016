package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/histostore/container"
	"github.com/hupe1980/histostore/container/h5"
)

// ErrUnknownFormat is returned for an unsupported --output value.
var ErrUnknownFormat = errors.New("unknown output format")

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type datasetInfo struct {
	Path        string         `json:"path" yaml:"path"`
	Type        string         `json:"type" yaml:"type"`
	Shape       []int          `json:"shape" yaml:"shape"`
	Compression string         `json:"compression" yaml:"compression"`
	StoredBytes int64          `json:"stored_bytes" yaml:"stored_bytes"`
	Attrs       map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

type containerInfo struct {
	Name     string         `json:"name" yaml:"name"`
	ID       string         `json:"id" yaml:"id"`
	Size     int64          `json:"size" yaml:"size"`
	Attrs    map[string]any `json:"attrs" yaml:"attrs"`
	Groups   []string       `json:"groups" yaml:"groups"`
	Datasets []datasetInfo  `json:"datasets" yaml:"datasets"`
}

func newInspectCommand(a *app) *cobra.Command {
	var (
		output string
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <container>",
		Short: "Show the groups, datasets and metadata of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.openContainer(cmd.Context(), args[0], remote)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			return render(cmd.OutOrStdout(), describe(args[0], f), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	cmd.Flags().BoolVar(&remote, "remote", false, "read the container from the configured store")

	return cmd
}

func (a *app) openContainer(ctx context.Context, name string, remote bool) (*container.File, error) {
	if !remote {
		f, err := container.Open(name)
		if errors.Is(err, container.ErrHDF5) {
			return a.importHDF5(name)
		}
		return f, err
	}
	store, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return container.OpenBlob(ctx, b)
}

// importHDF5 converts an HDF5 file in memory so it can be described like a
// container. Parts that do not convert are logged and left out.
func (a *app) importHDF5(name string) (*container.File, error) {
	f, err := h5.Import(name)
	if errors.Is(err, h5.ErrSkipped) {
		a.logger.Warn("hdf5 import incomplete", "file", name, "error", err)
		return f, nil
	}
	return f, err
}

func attrMap(attrs []container.Attr) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, a := range attrs {
		out[a.Name] = a.Value.Any()
	}
	return out
}

func describe(name string, f *container.File) containerInfo {
	info := containerInfo{
		Name:  name,
		ID:    f.ID().String(),
		Size:  f.Size(),
		Attrs: attrMap(f.Root().Attrs()),
	}
	walk(f.Root(), &info)
	return info
}

func walk(g *container.Group, info *containerInfo) {
	for _, name := range g.Names() {
		if ds, err := g.Dataset(name); err == nil {
			di := datasetInfo{
				Path:        ds.Path(),
				Type:        ds.Type().String(),
				Shape:       ds.Shape(),
				Compression: ds.Compression().String(),
				StoredBytes: ds.StoredSize(),
			}
			if attrs := ds.Attrs(); len(attrs) > 0 {
				di.Attrs = attrMap(attrs)
			}
			info.Datasets = append(info.Datasets, di)
			continue
		}
		sub, err := g.Group(name)
		if err != nil {
			continue
		}
		info.Groups = append(info.Groups, sub.Path())
		walk(sub, info)
	}
}

func render(w io.Writer, info containerInfo, format string) error {
	switch format {
	case formatTable:
		return renderTable(w, info)
	case formatJSON:
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderTable(w io.Writer, info containerInfo) error {
	fmt.Fprintf(w, "%s (%s, id %s)\n\n", info.Name, humanize.Bytes(uint64(info.Size)), info.ID)

	keys := make([]string, 0, len(info.Attrs))
	for k := range info.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := table.NewWriter()
	attrs.SetStyle(table.StyleLight)
	attrs.AppendHeader(table.Row{"Attribute", "Value"})
	for _, k := range keys {
		attrs.AppendRow(table.Row{k, info.Attrs[k]})
	}
	fmt.Fprintf(w, "%s\n\n", attrs.Render())

	datasets := table.NewWriter()
	datasets.SetStyle(table.StyleLight)
	datasets.AppendHeader(table.Row{"Dataset", "Type", "Shape", "Compression", "Stored"})
	var stored int64
	for _, d := range info.Datasets {
		datasets.AppendRow(table.Row{d.Path, d.Type, shapeString(d.Shape), d.Compression, humanize.Bytes(uint64(d.StoredBytes))})
		stored += d.StoredBytes
	}
	datasets.AppendFooter(table.Row{fmt.Sprintf("%d datasets", len(info.Datasets)), "", "", "", humanize.Bytes(uint64(stored))})
	_, err := fmt.Fprintln(w, datasets.Render())
	return err
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = humanize.Comma(int64(d))
	}
	return strings.Join(parts, " x ")
}
