package benchmark_test

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/hupe1980/histostore/blobstore"
)

// Typical object-store time to first byte is 10-50ms; 5ms keeps runs short.
const cloudLatency = 5 * time.Millisecond

// remoteStore makes a local BlobStore behave like a bucket: every metadata
// call and every ranged read pays one round trip. Writes pass through.
type remoteStore struct {
	blobstore.BlobStore
	rtt      time.Duration
	requests atomic.Int64
}

func newRemoteStore(base blobstore.BlobStore, rtt time.Duration) *remoteStore {
	return &remoteStore{BlobStore: base, rtt: rtt}
}

// roundTrip waits one rtt or until ctx is done.
func (s *remoteStore) roundTrip(ctx context.Context) error {
	s.requests.Add(1)
	t := time.NewTimer(s.rtt)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *remoteStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if err := s.roundTrip(ctx); err != nil {
		return nil, err
	}
	b, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &remoteBlob{Blob: b, store: s}, nil
}

func (s *remoteStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.roundTrip(ctx); err != nil {
		return nil, err
	}
	return s.BlobStore.List(ctx, prefix)
}

type remoteBlob struct {
	blobstore.Blob
	store *remoteStore
}

func (b *remoteBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.store.roundTrip(ctx); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}

func (b *remoteBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if err := b.store.roundTrip(ctx); err != nil {
		return nil, err
	}
	return b.Blob.ReadRange(ctx, off, length)
}
