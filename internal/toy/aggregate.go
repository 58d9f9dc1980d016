package toy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/histostore/blobstore"
	"github.com/hupe1980/histostore/container"
	"github.com/hupe1980/histostore/record"
)

// Source locates and opens shards.
type Source interface {
	// Match returns the shard names matching pattern.
	Match(ctx context.Context, pattern string) ([]string, error)
	// Open opens one shard. The caller closes the file.
	Open(ctx context.Context, name string) (*container.File, error)
}

// FileSource reads shards from the local file system.
type FileSource struct{}

// Match expands a filepath.Glob pattern.
func (FileSource) Match(_ context.Context, pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// Open maps the shard file.
func (FileSource) Open(_ context.Context, name string) (*container.File, error) {
	return container.Open(name)
}

// StoreSource reads shards from a blob store.
type StoreSource struct {
	Store blobstore.BlobStore
}

// Match lists the store and filters names with path.Match.
func (s StoreSource) Match(ctx context.Context, pattern string) ([]string, error) {
	return blobstore.Glob(ctx, s.Store, pattern)
}

// Open opens the shard blob.
func (s StoreSource) Open(ctx context.Context, name string) (*container.File, error) {
	return openBlob(ctx, s.Store, name)
}

// AggregateOptions configures Aggregate.
type AggregateOptions struct {
	// StreamNames restricts aggregation to these streams. Every shard must
	// contain all of them. When nil the first shard defines the stream set.
	StreamNames []string
	// Concurrency bounds the number of shards read at once. Values below 1
	// mean 1.
	Concurrency int
	Logger      *slog.Logger
}

// Result is an aggregated shard set.
type Result struct {
	Streams map[string]*record.Array
	// Shards lists the aggregated shard names in concatenation order.
	Shards []string
}

// Records returns the total number of records across all streams.
func (r *Result) Records() int {
	n := 0
	for _, a := range r.Streams {
		n += a.Len()
	}
	return n
}

type shardStreams map[string]*record.Array

// Aggregate concatenates, per stream, the records of every shard matching
// pattern. Shards are taken in lexicographic order of their names and
// records keep their in-shard order. Any failure aborts the whole call.
func Aggregate(ctx context.Context, src Source, pattern string, opts AggregateOptions) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}

	names, err := src.Match(ctx, pattern)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoShards, pattern)
	}
	sort.Strings(names)

	first, order, err := loadFirst(ctx, src, names[0], opts.StreamNames)
	if err != nil {
		return nil, err
	}
	ref := make(map[string]container.DType, len(first))
	for name, arr := range first {
		ref[name] = arr.Type()
	}

	loaded := make([]shardStreams, len(names))
	loaded[0] = first
	errs := make([]error, len(names))

	// A failing shard stops only shards sorted after it, so the reported
	// error is always the earliest failure in name order.
	var stop atomic.Int64
	stop.Store(int64(len(names)))
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 1; i < len(names); i++ {
		g.Go(func() error {
			if int64(i) > stop.Load() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			streams, err := loadShard(ctx, src, names[i], order, ref, opts.StreamNames != nil)
			if err != nil {
				errs[i] = err
				lowerStop(&stop, int64(i))
				return err
			}
			loaded[i] = streams
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, firstError(errs, err)
	}

	out := make(map[string]*record.Array, len(order))
	for _, stream := range order {
		parts := make([]*record.Array, len(loaded))
		for i, s := range loaded {
			parts[i] = s[stream]
		}
		joined, err := record.Concat(parts...)
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", stream, err)
		}
		if joined.Len() == 0 {
			logger.Warn("stream has no records in any shard", slog.String("stream", stream))
		}
		out[stream] = joined
	}

	logger.Debug("shards aggregated",
		slog.String("pattern", pattern),
		slog.Int("shards", len(names)),
		slog.Int("streams", len(out)),
	)
	return &Result{Streams: out, Shards: names}, nil
}

// lowerStop records i as the failing index when it precedes the current one.
func lowerStop(stop *atomic.Int64, i int64) {
	for {
		cur := stop.Load()
		if i >= cur || stop.CompareAndSwap(cur, i) {
			return
		}
	}
}

// firstError returns the failure of the earliest shard in sorted order.
func firstError(errs []error, fallback error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return fallback
}

// loadFirst reads the reference shard and fixes the stream set and order.
func loadFirst(ctx context.Context, src Source, name string, want []string) (shardStreams, []string, error) {
	f, err := src.Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	fits, err := fitsOf(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	order := want
	if order == nil {
		if fits != nil {
			order = fits.DatasetNames()
		}
	}

	out := make(shardStreams, len(order))
	for _, stream := range order {
		arr, err := readStream(fits, name, stream)
		if err != nil {
			return nil, nil, err
		}
		out[stream] = arr
	}
	return out, order, nil
}

func loadShard(ctx context.Context, src Source, name string, order []string,
	ref map[string]container.DType, explicit bool) (shardStreams, error) {
	f, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	fits, err := fitsOf(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !explicit {
		var present []string
		if fits != nil {
			present = fits.DatasetNames()
		}
		if !sameSet(present, order) {
			return nil, fmt.Errorf("%w: %s has streams %v, first shard has %v", ErrStreamSetMismatch, name, present, order)
		}
	}

	out := make(shardStreams, len(order))
	for _, stream := range order {
		ds, err := dataset(fits, name, stream)
		if err != nil {
			return nil, err
		}
		if !ds.Type().Equal(ref[stream]) {
			return nil, &LayoutMismatchError{Stream: stream, Shard: name, Expected: ref[stream], Actual: ds.Type()}
		}
		arr, err := readRecords(ds)
		if err != nil {
			return nil, fmt.Errorf("%s: stream %q: %w", name, stream, err)
		}
		out[stream] = arr
	}
	return out, nil
}

func dataset(fits *container.Group, shard, stream string) (*container.Dataset, error) {
	if fits == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingKey, stream, shard)
	}
	ds, err := fits.Dataset(stream)
	if errors.Is(err, container.ErrNotFound) || errors.Is(err, container.ErrInvalidName) || errors.Is(err, container.ErrNotGroup) {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingKey, stream, shard)
	}
	return ds, err
}

func readStream(fits *container.Group, shard, stream string) (*record.Array, error) {
	ds, err := dataset(fits, shard, stream)
	if err != nil {
		return nil, err
	}
	arr, err := readRecords(ds)
	if err != nil {
		return nil, fmt.Errorf("%s: stream %q: %w", shard, stream, err)
	}
	return arr, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
