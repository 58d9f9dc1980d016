package container

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/histostore/blobstore"
	"github.com/hupe1980/histostore/internal/compress"
	"github.com/hupe1980/histostore/internal/hash"
	"github.com/hupe1980/histostore/internal/mmap"
)

// prefetcher is implemented by memory-mapped sources that can read ahead.
type prefetcher interface {
	Prefetch(off, n int64)
}

// File is an open, read-only container.
type File struct {
	r       io.ReaderAt
	size    int64
	closer  io.Closer
	id      uuid.UUID
	version uint32
	root    *Group
}

// Open opens the container at path through a read-only memory mapping.
// The caller must Close the file.
func Open(path string) (*File, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := NewReader(m, int64(m.Size()))
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.closer = m
	return f, nil
}

// OpenBlob opens a container stored in a blob store. Closing the File closes the blob.
func OpenBlob(ctx context.Context, b blobstore.Blob) (*File, error) {
	f, err := NewReader(blobstore.NewReaderAt(ctx, b), b.Size())
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	f.closer = b
	return f, nil
}

// NewReader parses a container from r. The header, footer and index are read
// eagerly; dataset payloads are read on demand.
func NewReader(r io.ReaderAt, size int64) (*File, error) {
	if size < headerSize+footerSize+indexHead {
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrCorrupt, size)
	}

	header := make([]byte, headerSize)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrCorrupt, err)
	}
	if binary.LittleEndian.Uint32(header[0:4]) != magic {
		if IsHDF5(r, size) {
			return nil, ErrHDF5
		}
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	version := binary.LittleEndian.Uint32(header[4:8])
	if version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	id, _ := uuid.FromBytes(header[8:24])

	footer := make([]byte, footerSize)
	if _, err := r.ReadAt(footer, size-footerSize); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading footer: %w", ErrCorrupt, err)
	}
	if binary.LittleEndian.Uint32(footer[12:16]) != magic {
		return nil, fmt.Errorf("%w: bad footer magic (truncated file?)", ErrCorrupt)
	}
	indexOffset := binary.LittleEndian.Uint64(footer[0:8])
	indexLen := uint64(binary.LittleEndian.Uint32(footer[8:12]))
	if indexLen < indexHead || indexOffset < headerSize || indexOffset+indexLen != uint64(size-footerSize) {
		return nil, fmt.Errorf("%w: index location out of range", ErrCorrupt)
	}

	block := make([]byte, indexLen)
	if _, err := r.ReadAt(block, int64(indexOffset)); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading index: %w", ErrCorrupt, err)
	}
	sum := binary.LittleEndian.Uint32(block[0:4])
	payloadLen := uint64(binary.LittleEndian.Uint32(block[4:8]))
	if payloadLen != indexLen-indexHead {
		return nil, fmt.Errorf("%w: index length mismatch", ErrCorrupt)
	}
	payload := block[indexHead:]
	if err := hash.Verify("index", payload, sum); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	f := &File{r: r, size: size, id: id, version: version}
	pb := newPayloadBuffer(payload)
	f.root = readGroup(pb, f, "/", 0)
	if pb.err != nil {
		return nil, fmt.Errorf("%w: index: %w", ErrCorrupt, pb.err)
	}
	if pb.pos != len(payload) {
		return nil, fmt.Errorf("%w: trailing index bytes", ErrCorrupt)
	}
	return f, nil
}

// hdf5Signature starts an HDF5 superblock. It sits at offset 0 or, after a
// user block, at 512 and every doubling past it.
const hdf5Signature = "\x89HDF\r\n\x1a\n"

// IsHDF5 reports whether r holds an HDF5 file.
func IsHDF5(r io.ReaderAt, size int64) bool {
	sig := make([]byte, len(hdf5Signature))
	for off := int64(0); off+int64(len(sig)) <= size; {
		if n, _ := r.ReadAt(sig, off); n == len(sig) && string(sig) == hdf5Signature {
			return true
		}
		if off == 0 {
			off = 512
		} else {
			off *= 2
		}
	}
	return false
}

// ID returns the file identifier written at creation.
func (f *File) ID() uuid.UUID { return f.id }

// Size returns the container size in bytes.
func (f *File) Size() int64 { return f.size }

// Root returns the root group.
func (f *File) Root() *Group { return f.root }

// Close releases the underlying mapping or blob.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}

// Group is a read-only group.
type Group struct {
	path     string
	attrs    attrList
	names    []string
	groups   map[string]*Group
	datasets map[string]*Dataset
}

func readGroup(pb *payloadBuffer, f *File, path string, depth int) *Group {
	g := &Group{path: path, groups: map[string]*Group{}, datasets: map[string]*Dataset{}}
	if depth > 64 {
		pb.fail("%w: group nesting too deep", ErrCorrupt)
		return g
	}
	g.attrs = pb.readAttrs()
	n := pb.readUint32()
	for i := uint32(0); i < n && pb.err == nil; i++ {
		kind := pb.readUint8()
		name := pb.readName()
		if pb.err != nil {
			break
		}
		if err := validateName(name); err != nil {
			pb.fail("%w", err)
			break
		}
		if _, dup := g.groups[name]; dup {
			pb.fail("%w: duplicate child %q", ErrCorrupt, name)
			break
		}
		if _, dup := g.datasets[name]; dup {
			pb.fail("%w: duplicate child %q", ErrCorrupt, name)
			break
		}
		childPath := joinPath(path, name)
		switch kind {
		case nodeGroup:
			g.groups[name] = readGroup(pb, f, childPath, depth+1)
		case nodeDataset:
			g.datasets[name] = readDataset(pb, f, childPath)
		default:
			pb.fail("%w: unknown node kind %d", ErrCorrupt, kind)
		}
		g.names = append(g.names, name)
	}
	return g
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// Path returns the absolute path of the group.
func (g *Group) Path() string { return g.path }

// Attrs returns the group's attributes in write order.
func (g *Group) Attrs() []Attr { return append([]Attr(nil), g.attrs...) }

// Attr returns a named attribute.
func (g *Group) Attr(name string) (Value, bool) { return g.attrs.get(name) }

// Names returns the names of all children in write order.
func (g *Group) Names() []string { return append([]string(nil), g.names...) }

// DatasetNames returns the names of child datasets in write order.
func (g *Group) DatasetNames() []string {
	var out []string
	for _, n := range g.names {
		if _, ok := g.datasets[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Group resolves a slash-separated path of groups below g.
func (g *Group) Group(path string) (*Group, error) {
	cur := g
	for _, name := range splitPath(path) {
		next, ok := cur.groups[name]
		if !ok {
			if _, isDataset := cur.datasets[name]; isDataset {
				return nil, fmt.Errorf("%w: %s", ErrNotGroup, joinPath(cur.path, name))
			}
			return nil, fmt.Errorf("%w: group %s", ErrNotFound, joinPath(cur.path, name))
		}
		cur = next
	}
	return cur, nil
}

// Dataset resolves a slash-separated dataset path below g.
func (g *Group) Dataset(path string) (*Dataset, error) {
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
	d, ok := parent.datasets[parts[len(parts)-1]]
	if !ok {
		return nil, fmt.Errorf("%w: dataset %s", ErrNotFound, joinPath(parent.path, parts[len(parts)-1]))
	}
	return d, nil
}

// Dataset is a read-only dataset.
type Dataset struct {
	f           *File
	path        string
	dtype       DType
	shape       []int
	attrs       attrList
	compression Compression
	offset      int64
	blockLen    uint32
	checksum    uint32
}

func readDataset(pb *payloadBuffer, f *File, path string) *Dataset {
	d := &Dataset{f: f, path: path}
	d.dtype = pb.readDType(0)
	d.shape = make([]int, pb.readUint8())
	for i := range d.shape {
		dim := pb.readUint64()
		if dim > math.MaxInt32 {
			pb.fail("%w: dataset %s dimension %d", ErrCorrupt, path, dim)
		}
		d.shape[i] = int(dim)
	}
	d.attrs = pb.readAttrs()
	d.compression = Compression(pb.readUint8())
	d.offset = int64(pb.readUint64())
	d.blockLen = pb.readUint32()
	d.checksum = pb.readUint32()
	if pb.err != nil {
		return d
	}
	if !d.compression.Valid() {
		pb.fail("%w: dataset %s compression %d", ErrCorrupt, path, d.compression)
	}
	if d.offset < headerSize || d.offset+int64(d.blockLen) > f.size-footerSize {
		pb.fail("%w: dataset %s block out of range", ErrCorrupt, path)
	}
	return d
}

// Path returns the absolute path of the dataset.
func (d *Dataset) Path() string { return d.path }

// Type returns the element type.
func (d *Dataset) Type() DType { return d.dtype }

// Shape returns the dataset dimensions.
func (d *Dataset) Shape() []int { return append([]int(nil), d.shape...) }

// Len returns the number of elements (the product of the shape).
func (d *Dataset) Len() int {
	n := 1
	for _, dim := range d.shape {
		n *= dim
	}
	return n
}

// Compression returns the block encoding of the payload.
func (d *Dataset) Compression() Compression { return d.compression }

// StoredSize returns the on-disk size of the payload block.
func (d *Dataset) StoredSize() int64 { return int64(d.blockLen) }

// Attrs returns the dataset's attributes in write order.
func (d *Dataset) Attrs() []Attr { return append([]Attr(nil), d.attrs...) }

// Attr returns a named attribute.
func (d *Dataset) Attr(name string) (Value, bool) { return d.attrs.get(name) }

// ReadRaw returns the packed element bytes, verified against the stored checksum.
func (d *Dataset) ReadRaw() ([]byte, error) {
	if p, ok := d.f.r.(prefetcher); ok {
		p.Prefetch(d.offset, int64(d.blockLen))
	}
	block := make([]byte, d.blockLen)
	if _, err := d.f.r.ReadAt(block, d.offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	raw, err := compress.Decode(block, d.compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, d.path, err)
	}
	if len(raw) != d.Len()*d.dtype.Size() {
		return nil, fmt.Errorf("%w: %s: payload size %d", ErrCorrupt, d.path, len(raw))
	}
	if err := hash.Verify(d.path, raw, d.checksum); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return raw, nil
}

// ReadFloat64s reads a numeric dataset, converting every element to float64.
func (d *Dataset) ReadFloat64s() ([]float64, error) {
	if !d.dtype.Kind().IsNumeric() && d.dtype.Kind() != KindBool {
		return nil, fmt.Errorf("%w: %s has type %s", ErrNotNumeric, d.path, d.dtype)
	}
	raw, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	return DecodeNumeric(d.dtype.Kind(), raw), nil
}
