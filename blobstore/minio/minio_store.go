package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/histostore/blobstore"
)

// ContentType is attached to every object the store uploads.
const ContentType = "application/x-histostore"

// DefaultPartSize is the multipart chunk used for streamed uploads of
// unknown length.
const DefaultPartSize uint64 = 16 << 20

// Option configures a Store.
type Option func(*Store)

// WithPrefix stores every blob under prefix, e.g. "campaign-42".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = strings.Trim(prefix, "/") }
}

// WithPartSize sets the multipart chunk size for Create.
func WithPartSize(n uint64) Option {
	return func(s *Store) {
		if n > 0 {
			s.partSize = n
		}
	}
}

// WithUserMetadata attaches x-amz-meta headers to every upload.
func WithUserMetadata(md map[string]string) Option {
	return func(s *Store) {
		s.userMeta = make(map[string]string, len(md))
		for k, v := range md {
			s.userMeta[k] = v
		}
	}
}

// Store keeps containers and toy shards in a MinIO or S3-compatible bucket.
//
// Objects are treated as immutable: an opened blob pins the object's ETag,
// so a shard replaced while it is being aggregated fails the read instead of
// mixing two versions.
type Store struct {
	client   *minio.Client
	bucket   string
	prefix   string
	partSize uint64
	userMeta map[string]string
}

// NewStore returns a store over bucket.
func NewStore(client *minio.Client, bucket string, opts ...Option) *Store {
	s := &Store{client: client, bucket: bucket, partSize: DefaultPartSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *Store) name(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
}

func (s *Store) putOptions() minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:  ContentType,
		UserMetadata: s.userMeta,
		PartSize:     s.partSize,
	}
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	default:
		return false
	}
}

// translate maps missing objects onto blobstore.ErrNotFound.
func translate(op, name string, err error) error {
	if isNotFound(err) {
		return &os.PathError{Op: op, Path: name, Err: blobstore.ErrNotFound}
	}
	return fmt.Errorf("minio: %s %s: %w", op, name, err)
}

// Open stats the object and returns a reader pinned to its current ETag.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, translate("open", name, err)
	}
	return &object{store: s, name: name, key: key, etag: info.ETag, size: info.Size}, nil
}

// Put uploads data in one request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), s.putOptions())
	if err != nil {
		return translate("put", name, err)
	}
	return nil
}

// Create streams an upload through a pipe. The object appears only after
// Close returns nil; Abort cancels the upload.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	w := &upload{name: name, pw: pw, cancel: cancel, done: make(chan error, 1)}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, s.putOptions())
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// Delete removes name. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return translate("delete", name, err)
	}
	return nil
}

// List returns the sorted blob names under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, translate("list", prefix, obj.Err)
		}
		if name := s.name(obj.Key); name != "" && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

type object struct {
	store  *Store
	name   string
	key    string
	etag   string
	size   int64
	closed atomic.Bool
}

func (o *object) Size() int64 { return o.size }

func (o *object) Close() error {
	o.closed.Store(true)
	return nil
}

// get fetches bytes [off, end] inclusive.
func (o *object) get(ctx context.Context, off, end int64) (*minio.Object, error) {
	if o.closed.Load() {
		return nil, os.ErrClosed
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return nil, err
	}
	if o.etag != "" {
		if err := opts.SetMatchETag(o.etag); err != nil {
			return nil, err
		}
	}
	obj, err := o.store.client.GetObject(ctx, o.store.bucket, o.key, opts)
	if err != nil {
		return nil, translate("read", o.name, err)
	}
	return obj, nil
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 || off >= o.size {
		return 0, io.EOF
	}
	end := min(off+int64(len(p)), o.size)
	obj, err := o.get(ctx, off, end-1)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	n, err := io.ReadFull(obj, p[:end-off])
	if err != nil {
		return n, translate("read", o.name, err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || off >= o.size || length <= 0 {
		return nil, io.EOF
	}
	end := min(off+length, o.size)
	return o.get(ctx, off, end-1)
}

var errAborted = errors.New("minio: upload aborted")

type upload struct {
	name     string
	pw       *io.PipeWriter
	cancel   context.CancelFunc
	done     chan error
	finished atomic.Bool
}

func (u *upload) Write(p []byte) (int, error) {
	if u.finished.Load() {
		return 0, os.ErrClosed
	}
	return u.pw.Write(p)
}

// Sync is a no-op; data is durable only once Close returns.
func (u *upload) Sync() error { return nil }

func (u *upload) Close() error {
	if !u.finished.CompareAndSwap(false, true) {
		return os.ErrClosed
	}
	defer u.cancel()
	if err := u.pw.Close(); err != nil {
		return err
	}
	if err := <-u.done; err != nil {
		return translate("upload", u.name, err)
	}
	return nil
}

func (u *upload) Abort() error {
	if !u.finished.CompareAndSwap(false, true) {
		return nil
	}
	_ = u.pw.CloseWithError(errAborted)
	u.cancel()
	<-u.done
	return nil
}
