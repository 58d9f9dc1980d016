package container

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/histostore/internal/compress"
	"github.com/hupe1980/histostore/internal/fs"
	"github.com/hupe1980/histostore/internal/hash"
)

// Compression selects the block encoding of dataset payloads.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(name string) (Compression, error) {
	return compress.ParseType(name)
}

type writerOptions struct {
	compression Compression
	fsys        fs.FileSystem
	id          uuid.UUID
}

// Option configures a Writer.
type Option func(*writerOptions)

// WithCompression sets the block encoding used for every dataset written.
func WithCompression(c Compression) Option {
	return func(o *writerOptions) { o.compression = c }
}

// WithFileSystem sets the file system used by Create. Defaults to the local one.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *writerOptions) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithFileID fixes the container's file identifier instead of a random UUID.
func WithFileID(id uuid.UUID) Option {
	return func(o *writerOptions) { o.id = id }
}

// Writer builds a container. Datasets are streamed to the output as they are
// written; groups and attributes are kept in memory until Close writes the
// index and footer.
type Writer struct {
	out         *bufio.Writer
	off         int64
	compression Compression
	id          uuid.UUID
	root        *GroupWriter
	err         error
	done        bool

	// Set when the writer owns a temp file that Close renames over target.
	file *fs.AtomicFile
}

// Create starts a new container at path. The container replaces any existing
// file at path only when Close succeeds; until then, and after Abort or a
// failed Close, path is left untouched.
func Create(path string, opts ...Option) (*Writer, error) {
	o := applyOptions(opts)
	f, err := fs.CreateAtomic(o.fsys, path)
	if err != nil {
		return nil, err
	}
	w, err := newWriter(f, o)
	if err != nil {
		_ = f.Discard()
		return nil, err
	}
	w.file = f
	return w, nil
}

// NewWriter starts a container on an arbitrary stream, e.g. a blob upload.
// The caller owns dst and must close it after Close returns.
func NewWriter(dst io.Writer, opts ...Option) (*Writer, error) {
	return newWriter(dst, applyOptions(opts))
}

func applyOptions(opts []Option) writerOptions {
	o := writerOptions{compression: CompressionNone, fsys: fs.Default}
	for _, fn := range opts {
		fn(&o)
	}
	if o.id == uuid.Nil {
		o.id = uuid.New()
	}
	return o
}

func newWriter(dst io.Writer, o writerOptions) (*Writer, error) {
	if !o.compression.Valid() {
		return nil, fmt.Errorf("%w: %d", compress.ErrUnknownType, o.compression)
	}
	w := &Writer{
		out:         bufio.NewWriterSize(dst, 64*1024),
		compression: o.compression,
		id:          o.id,
	}
	w.root = newGroupWriter(w)

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	copy(header[8:24], w.id[:])
	if err := w.write(header); err != nil {
		return nil, err
	}
	return w, nil
}

// ID returns the container's file identifier.
func (w *Writer) ID() uuid.UUID { return w.id }

// Root returns the root group.
func (w *Writer) Root() *GroupWriter { return w.root }

func (w *Writer) write(p []byte) error {
	if w.err != nil {
		return w.err
	}
	n, err := w.out.Write(p)
	w.off += int64(n)
	if err != nil {
		w.err = err
	}
	return err
}

func (w *Writer) usable() error {
	if w.done {
		return ErrClosed
	}
	return w.err
}

// Close writes the index and footer and, for file-backed writers, syncs the
// temp file and renames it over the target. Any failure aborts the container.
func (w *Writer) Close() error {
	if w.done {
		return ErrClosed
	}
	if err := w.finish(); err != nil {
		_ = w.abort()
		return err
	}
	w.done = true
	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil
	return f.Commit()
}

func (w *Writer) finish() error {
	if w.err != nil {
		return w.err
	}
	pb := newPayloadBuffer(make([]byte, 0, 4096))
	writeGroup(pb, w.root)
	if pb.err != nil {
		return pb.err
	}
	if uint64(len(pb.buf)) > uint64(^uint32(0))-indexHead {
		return errors.New("container: index too large")
	}

	indexOffset := w.off
	head := make([]byte, indexHead)
	binary.LittleEndian.PutUint32(head[0:4], hash.CRC32C(pb.buf))
	binary.LittleEndian.PutUint32(head[4:8], uint32(len(pb.buf)))
	if err := w.write(head); err != nil {
		return err
	}
	if err := w.write(pb.buf); err != nil {
		return err
	}

	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint64(footer[0:8], uint64(indexOffset))
	binary.LittleEndian.PutUint32(footer[8:12], uint32(indexHead+len(pb.buf)))
	binary.LittleEndian.PutUint32(footer[12:16], magic)
	if err := w.write(footer); err != nil {
		return err
	}
	return w.out.Flush()
}

// Abort discards the container. For file-backed writers the temp file is
// removed and the target path is never touched.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	return w.abort()
}

func (w *Writer) abort() error {
	w.done = true
	if w.err == nil {
		w.err = ErrClosed
	}
	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil
	return f.Discard()
}

func writeGroup(pb *payloadBuffer, g *GroupWriter) {
	pb.writeAttrs(g.attrs)
	pb.writeUint32(uint32(len(g.children)))
	for _, c := range g.children {
		if c.group != nil {
			pb.writeUint8(nodeGroup)
			pb.writeName(c.name)
			writeGroup(pb, c.group)
			continue
		}
		d := c.dataset
		pb.writeUint8(nodeDataset)
		pb.writeName(c.name)
		pb.writeDType(d.dtype)
		pb.writeUint8(uint8(len(d.shape)))
		for _, dim := range d.shape {
			pb.writeUint64(uint64(dim))
		}
		pb.writeAttrs(d.attrs)
		pb.writeUint8(uint8(d.compression))
		pb.writeUint64(uint64(d.offset))
		pb.writeUint32(d.blockLen)
		pb.writeUint32(d.checksum)
	}
}

type childEntry struct {
	name    string
	group   *GroupWriter
	dataset *DatasetWriter
}

// GroupWriter is a group under construction.
type GroupWriter struct {
	w        *Writer
	attrs    attrList
	children []childEntry
	index    map[string]int
}

func newGroupWriter(w *Writer) *GroupWriter {
	return &GroupWriter{w: w, index: make(map[string]int)}
}

// SetAttr sets (or replaces) an attribute on the group.
func (g *GroupWriter) SetAttr(name string, v Value) error {
	if err := g.w.usable(); err != nil {
		return err
	}
	return g.attrs.set(name, v)
}

// CreateGroup adds a new child group. It fails with ErrExists if name is taken.
func (g *GroupWriter) CreateGroup(name string) (*GroupWriter, error) {
	if err := g.w.usable(); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if _, ok := g.index[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, name)
	}
	child := newGroupWriter(g.w)
	g.add(childEntry{name: name, group: child})
	return child, nil
}

// Group returns the group at a slash-separated path below g, creating any
// missing groups along the way.
func (g *GroupWriter) Group(path string) (*GroupWriter, error) {
	cur := g
	for _, name := range splitPath(path) {
		if i, ok := cur.index[name]; ok {
			next := cur.children[i].group
			if next == nil {
				return nil, fmt.Errorf("%w: %q", ErrNotGroup, name)
			}
			cur = next
			continue
		}
		next, err := cur.CreateGroup(name)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// WriteDataset encodes raw (packed little-endian elements of dtype, row-major
// over shape) as a new dataset at path. Intermediate groups are created.
func (g *GroupWriter) WriteDataset(path string, dtype DType, shape []int, raw []byte) (*DatasetWriter, error) {
	if err := g.w.usable(); err != nil {
		return nil, err
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty dataset path", ErrInvalidName)
	}
	parent := g
	if len(parts) > 1 {
		var err error
		if parent, err = g.Group(strings.Join(parts[:len(parts)-1], "/")); err != nil {
			return nil, err
		}
	}
	name := parts[len(parts)-1]
	if err := validateName(name); err != nil {
		return nil, err
	}
	if _, ok := parent.index[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, path)
	}
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: dataset %q", ErrInvalidType, path)
	}
	if len(shape) > 255 {
		return nil, fmt.Errorf("%w: dataset %q has rank %d", ErrSizeMismatch, path, len(shape))
	}
	n := 1
	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("%w: dataset %q has negative dimension", ErrSizeMismatch, path)
		}
		n *= dim
	}
	if len(raw) != n*dtype.Size() {
		return nil, fmt.Errorf("%w: dataset %q: %d bytes for %d elements of %d bytes",
			ErrSizeMismatch, path, len(raw), n, dtype.Size())
	}

	if err := checkBlockSize(path, int64(len(raw))); err != nil {
		return nil, err
	}
	block, err := compress.Encode(raw, g.w.compression)
	if err != nil {
		return nil, err
	}
	if err := checkBlockSize(path, int64(len(block))); err != nil {
		return nil, err
	}
	d := &DatasetWriter{
		w:           g.w,
		dtype:       dtype,
		shape:       append([]int(nil), shape...),
		compression: g.w.compression,
		offset:      g.w.off,
		blockLen:    uint32(len(block)),
		checksum:    hash.CRC32C(raw),
	}
	if err := g.w.write(block); err != nil {
		return nil, err
	}
	parent.add(childEntry{name: name, dataset: d})
	return d, nil
}

// checkBlockSize rejects blocks whose length does not fit the 32-bit size
// fields of the block header and index.
func checkBlockSize(path string, n int64) error {
	if n > math.MaxUint32 {
		return fmt.Errorf("%w: dataset %q: %d bytes exceed the 4 GiB block limit", ErrSizeMismatch, path, n)
	}
	return nil
}

func (g *GroupWriter) add(c childEntry) {
	g.index[c.name] = len(g.children)
	g.children = append(g.children, c)
}

// DatasetWriter is a written dataset whose attributes may still be set.
type DatasetWriter struct {
	w           *Writer
	dtype       DType
	shape       []int
	attrs       attrList
	compression Compression
	offset      int64
	blockLen    uint32
	checksum    uint32
}

// SetAttr sets (or replaces) an attribute on the dataset.
func (d *DatasetWriter) SetAttr(name string, v Value) error {
	if err := d.w.usable(); err != nil {
		return err
	}
	return d.attrs.set(name, v)
}

// ValidateName reports whether name can be used for a group, dataset or
// compound field: non-empty, not "." or "..", and free of '/'.
func ValidateName(name string) error {
	return validateName(name)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") || len(name) > maxNameLen {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
