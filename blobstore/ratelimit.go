package blobstore

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// RateLimited returns a store whose blob reads share a budget of
// bytesPerSec bytes per second. Writes, listings and deletes are not
// limited. A non-positive rate returns store unchanged.
func RateLimited(store BlobStore, bytesPerSec int) BlobStore {
	if bytesPerSec <= 0 {
		return store
	}
	return &limitedStore{
		BlobStore: store,
		lim:       rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec),
	}
}

type limitedStore struct {
	BlobStore
	lim *rate.Limiter
}

func (s *limitedStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &limitedBlob{Blob: b, lim: s.lim}, nil
}

// acquire waits for n bytes of budget. WaitN rejects requests above the
// burst, so large reads are charged in burst-sized steps.
func acquire(ctx context.Context, lim *rate.Limiter, n int) error {
	burst := lim.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := lim.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

type limitedBlob struct {
	Blob
	lim *rate.Limiter
}

func (b *limitedBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := acquire(ctx, b.lim, len(p)); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}

func (b *limitedBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	rc, err := b.Blob.ReadRange(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return &limitedReader{ReadCloser: rc, ctx: ctx, lim: b.lim}, nil
}

type limitedReader struct {
	io.ReadCloser
	ctx context.Context
	lim *rate.Limiter
}

func (r *limitedReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		if werr := acquire(r.ctx, r.lim, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
