package s3

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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/hupe1980/histostore/blobstore"
)

// ContentType is attached to every object the store uploads.
const ContentType = "application/x-histostore"

// ErrObjectChanged is returned when an object is replaced while a reader
// still has it open.
var ErrObjectChanged = errors.New("s3: object changed since open")

// Client is the subset of the S3 API used by Store. *s3.Client satisfies it.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options configure a Store.
type Options struct {
	// Prefix is prepended to every key, e.g. "campaign-42".
	Prefix string
	// Region and Endpoint are only used by New to build the client.
	Region   string
	Endpoint string
	// PartSize is the multipart chunk for streamed uploads. Default: 8MB.
	PartSize int64
	// Concurrency is the number of parts uploaded in parallel. Default: 5.
	Concurrency int
}

// Option mutates Options.
type Option func(*Options)

// WithPrefix sets the root key prefix.
func WithPrefix(prefix string) Option {
	return func(o *Options) { o.Prefix = strings.Trim(prefix, "/") }
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(o *Options) { o.Region = region }
}

// WithEndpoint points the client at a custom endpoint using path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(o *Options) { o.Endpoint = endpoint }
}

// WithUpload tunes multipart uploads. Zero values keep the defaults.
func WithUpload(partSize int64, concurrency int) Option {
	return func(o *Options) {
		if partSize > 0 {
			o.PartSize = partSize
		}
		if concurrency > 0 {
			o.Concurrency = concurrency
		}
	}
}

func buildOptions(opts []Option) Options {
	o := Options{PartSize: 8 << 20, Concurrency: 5}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Store keeps containers and toy shards in an S3 bucket. Opened blobs are
// pinned to the object's ETag.
type Store struct {
	client Client
	bucket string
	opts   Options
}

// NewStore wraps an existing client.
func NewStore(client Client, bucket string, opts ...Option) *Store {
	return &Store{client: client, bucket: bucket, opts: buildOptions(opts)}
}

// New creates a Store from the default AWS configuration chain
// (environment, shared config, instance role).
func New(ctx context.Context, bucket string, opts ...Option) (*Store, error) {
	o := buildOptions(opts)

	var loadOpts []func(*config.LoadOptions) error
	if o.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return &Store{client: client, bucket: bucket, opts: o}, nil
}

func (s *Store) key(name string) string {
	if s.opts.Prefix == "" {
		return name
	}
	return path.Join(s.opts.Prefix, name)
}

func (s *Store) name(key string) string {
	if s.opts.Prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, s.opts.Prefix), "/")
}

// translate maps S3 error codes onto blobstore errors.
func translate(op, name string, err error) error {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return &os.PathError{Op: op, Path: name, Err: blobstore.ErrNotFound}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
		return &os.PathError{Op: op, Path: name, Err: ErrObjectChanged}
	}
	return fmt.Errorf("s3: %s %s: %w", op, name, err)
}

// Open sends a HEAD request for size and ETag.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate("open", name, err)
	}
	return &object{
		client: s.client,
		bucket: s.bucket,
		name:   name,
		key:    key,
		etag:   aws.ToString(head.ETag),
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Create starts a streaming multipart upload. The object appears only when
// Close succeeds; Abort cancels the upload and its parts.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	uploader := manager.NewUploader(s.client, func(u *manager.Uploader) {
		u.PartSize = s.opts.PartSize
		u.Concurrency = s.opts.Concurrency
		u.LeavePartsOnError = false
	})

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	w := &upload{name: name, pw: pw, cancel: cancel, done: make(chan error, 1)}
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key(name)),
			ContentType: aws.String(ContentType),
			Body:        pr,
		})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// Put uploads data in a single request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		ContentType:   aws.String(ContentType),
		ContentLength: aws.Int64(int64(len(data))),
		Body:          bytes.NewReader(data),
	})
	if err != nil {
		return translate("put", name, err)
	}
	return nil
}

// Delete removes a blob. S3 treats deleting a missing key as success.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return translate("delete", name, err)
	}
	return nil
}

// List returns the sorted blob names under prefix, relative to the root prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translate("list", prefix, err)
		}
		for _, obj := range page.Contents {
			if name := s.name(aws.ToString(obj.Key)); name != "" && strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

type object struct {
	client Client
	bucket string
	name   string
	key    string
	etag   string
	size   int64
	closed atomic.Bool
}

func (o *object) Close() error {
	o.closed.Store(true)
	return nil
}

func (o *object) Size() int64 { return o.size }

// get fetches bytes [off, end] inclusive.
func (o *object) get(ctx context.Context, off, end int64) (io.ReadCloser, error) {
	if o.closed.Load() {
		return nil, os.ErrClosed
	}
	in := &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	}
	if o.etag != "" {
		in.IfMatch = aws.String(o.etag)
	}
	resp, err := o.client.GetObject(ctx, in)
	if err != nil {
		return nil, translate("read", o.name, err)
	}
	return resp.Body, nil
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 || off >= o.size {
		return 0, io.EOF
	}
	end := min(off+int64(len(p)), o.size)
	body, err := o.get(ctx, off, end-1)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	n, err := io.ReadFull(body, p[:end-off])
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
	return o.get(ctx, off, min(off+length, o.size)-1)
}

var errAborted = errors.New("s3: upload aborted")

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

// Sync is a no-op; the upload is finalized by Close.
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
