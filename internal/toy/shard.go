package toy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/hupe1980/histostore/blobstore"
	"github.com/hupe1980/histostore/codec"
	"github.com/hupe1980/histostore/container"
	"github.com/hupe1980/histostore/internal/fs"
	"github.com/hupe1980/histostore/record"
)

const (
	fitsGroup = "fits"

	// DateLayout formats the default "date" metadata entry.
	DateLayout = "20060102_15:04:05"
)

// DefaultMetadata returns the shard metadata written when the caller supplies none.
func DefaultMetadata(now time.Time) map[string]any {
	return map[string]any{
		"version": "0.0",
		"date":    now.Format(DateLayout),
	}
}

// Stream is one named record stream of a shard.
type Stream struct {
	Name     string
	Records  *record.Array
	Metadata map[string]any
}

// Shard is a decoded shard.
type Shard struct {
	Streams  []Stream
	Metadata map[string]any
}

// Stream returns the named stream.
func (s *Shard) Stream(name string) (Stream, bool) {
	for _, st := range s.Streams {
		if st.Name == name {
			return st, true
		}
	}
	return Stream{}, false
}

// WriteOptions configures shard writes.
type WriteOptions struct {
	// Metadata defaults to DefaultMetadata(time.Now()) when nil.
	Metadata    map[string]any
	Codec       codec.Codec
	Compression container.Compression
	FileSystem  fs.FileSystem
	Logger      *slog.Logger
}

func (o *WriteOptions) defaults() {
	if o.Codec == nil {
		o.Codec = codec.Default
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Metadata == nil {
		o.Metadata = DefaultMetadata(time.Now())
	}
}

type encodedStream struct {
	Stream
	attrs []container.Attr
}

// prepare validates streams and serializes all metadata before anything is
// written, so argument errors never create a file.
func prepare(streams []Stream, opts WriteOptions) ([]container.Attr, []encodedStream, error) {
	rootAttrs, err := jsonAttrs(opts.Codec, opts.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: shard metadata: %w", ErrArgumentMismatch, err)
	}

	seen := make(map[string]struct{}, len(streams))
	out := make([]encodedStream, len(streams))
	for i, s := range streams {
		if err := container.ValidateName(s.Name); err != nil {
			return nil, nil, fmt.Errorf("%w: stream %d: %w", ErrArgumentMismatch, i, err)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate stream name %q", ErrArgumentMismatch, s.Name)
		}
		seen[s.Name] = struct{}{}
		if s.Records == nil {
			return nil, nil, fmt.Errorf("%w: stream %q has no records", ErrArgumentMismatch, s.Name)
		}
		attrs, err := jsonAttrs(opts.Codec, s.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: stream %q metadata: %w", ErrArgumentMismatch, s.Name, err)
		}
		out[i] = encodedStream{Stream: s, attrs: attrs}
	}
	return rootAttrs, out, nil
}

func jsonAttrs(c codec.Codec, md map[string]any) ([]container.Attr, error) {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]container.Attr, 0, len(keys))
	for _, k := range keys {
		text, err := codec.EncodeText(c, md[k])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		attrs = append(attrs, container.Attr{Name: k, Value: container.StringValue(text)})
	}
	return attrs, nil
}

func writeShard(w *container.Writer, rootAttrs []container.Attr, streams []encodedStream) error {
	root := w.Root()
	for _, a := range rootAttrs {
		if err := root.SetAttr(a.Name, a.Value); err != nil {
			return err
		}
	}
	fits, err := root.CreateGroup(fitsGroup)
	if err != nil {
		return err
	}
	for _, s := range streams {
		ds, err := fits.WriteDataset(s.Name, s.Records.Type(), []int{s.Records.Len()}, s.Records.Bytes())
		if err != nil {
			return fmt.Errorf("stream %q: %w", s.Name, err)
		}
		for _, a := range s.attrs {
			if err := ds.SetAttr(a.Name, a.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write writes a shard container at path, replacing any existing file.
func Write(path string, streams []Stream, opts WriteOptions) error {
	opts.defaults()
	rootAttrs, encoded, err := prepare(streams, opts)
	if err != nil {
		return err
	}

	w, err := container.Create(path,
		container.WithCompression(opts.Compression),
		container.WithFileSystem(opts.FileSystem),
	)
	if err != nil {
		return err
	}
	if err := writeShard(w, rootAttrs, encoded); err != nil {
		_ = w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	opts.Logger.Debug("shard written", slog.String("path", path), slog.Int("streams", len(streams)))
	return nil
}

// WriteBlob writes a shard to store under name. The blob is published only
// if the whole shard was written.
func WriteBlob(ctx context.Context, store blobstore.BlobStore, name string, streams []Stream, opts WriteOptions) error {
	opts.defaults()
	rootAttrs, encoded, err := prepare(streams, opts)
	if err != nil {
		return err
	}

	blob, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	if err := writeStream(blob, rootAttrs, encoded, opts); err != nil {
		_ = blob.Abort()
		return err
	}
	if err := blob.Close(); err != nil {
		return err
	}
	opts.Logger.Debug("shard written", slog.String("blob", name), slog.Int("streams", len(streams)))
	return nil
}

func writeStream(dst io.Writer, rootAttrs []container.Attr, streams []encodedStream, opts WriteOptions) error {
	w, err := container.NewWriter(dst, container.WithCompression(opts.Compression))
	if err != nil {
		return err
	}
	if err := writeShard(w, rootAttrs, streams); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}

// Read reads every stream of the shard at path.
func Read(path string, c codec.Codec) (*Shard, error) {
	f, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	s, err := readShard(f, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadBlob reads every stream of the shard stored under name.
func ReadBlob(ctx context.Context, store blobstore.BlobStore, name string, c codec.Codec) (*Shard, error) {
	f, err := openBlob(ctx, store, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	s, err := readShard(f, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

func openBlob(ctx context.Context, store blobstore.BlobStore, name string) (*container.File, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	f, err := container.OpenBlob(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func readShard(f *container.File, c codec.Codec) (*Shard, error) {
	if c == nil {
		c = codec.Default
	}
	md, err := decodeAttrs(c, f.Root().Attrs())
	if err != nil {
		return nil, err
	}
	s := &Shard{Metadata: md}

	fits, err := fitsOf(f)
	if err != nil || fits == nil {
		return s, err
	}
	for _, name := range fits.DatasetNames() {
		ds, err := fits.Dataset(name)
		if err != nil {
			return nil, err
		}
		recs, err := readRecords(ds)
		if err != nil {
			return nil, err
		}
		smd, err := decodeAttrs(c, ds.Attrs())
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", name, err)
		}
		s.Streams = append(s.Streams, Stream{Name: name, Records: recs, Metadata: smd})
	}
	return s, nil
}

// fitsOf returns the fits group, or nil for a shard that has none.
func fitsOf(f *container.File) (*container.Group, error) {
	g, err := f.Root().Group(fitsGroup)
	if errors.Is(err, container.ErrNotFound) {
		return nil, nil
	}
	return g, err
}

func readRecords(ds *container.Dataset) (*record.Array, error) {
	raw, err := ds.ReadRaw()
	if err != nil {
		return nil, err
	}
	return record.New(ds.Type(), ds.Len(), raw)
}

// decodeAttrs parses JSON text attributes. Attributes stored as typed
// scalars are returned as their plain value.
func decodeAttrs(c codec.Codec, attrs []container.Attr) (map[string]any, error) {
	out := make(map[string]any, len(attrs))
	for _, a := range attrs {
		text, ok := a.Value.Str()
		if !ok {
			out[a.Name] = a.Value.Any()
			continue
		}
		v, err := codec.DecodeText(c, text)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", a.Name, err)
		}
		out[a.Name] = v
	}
	return out, nil
}
