package histostore

import (
	"context"
	"time"

	"github.com/hupe1980/histostore/blobstore"
	"github.com/hupe1980/histostore/internal/toy"
	"github.com/hupe1980/histostore/record"
)

// Stream is one named record stream of a shard.
type Stream struct {
	Name     string
	Records  *record.Array
	Metadata JSONMetadata
}

// Shard is a decoded toy-result shard.
type Shard struct {
	Streams  []Stream
	Metadata JSONMetadata
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

func toToyStreams(streams []Stream) ([]toy.Stream, int) {
	out := make([]toy.Stream, len(streams))
	records := 0
	for i, s := range streams {
		out[i] = toy.Stream{Name: s.Name, Records: s.Records, Metadata: s.Metadata}
		if s.Records != nil {
			records += s.Records.Len()
		}
	}
	return out, records
}

func fromToyShard(s *toy.Shard) *Shard {
	out := &Shard{Metadata: s.Metadata, Streams: make([]Stream, len(s.Streams))}
	for i, st := range s.Streams {
		out.Streams[i] = Stream{Name: st.Name, Records: st.Records, Metadata: st.Metadata}
	}
	return out
}

func (o *options) writeOptions() toy.WriteOptions {
	return toy.WriteOptions{
		Metadata:    o.shardMetadata,
		Codec:       o.codec,
		Compression: o.compression,
		Logger:      o.logger.Logger,
	}
}

// WriteShard writes streams as a shard container at path, replacing any
// existing file. Each stream's record layout is stored exactly as provided.
//
// Supported options: WithShardMetadata, WithCodec, WithCompression,
// WithLogger, WithMetrics.
func WriteShard(path string, streams []Stream, opts ...Option) error {
	o := applyOptions(opts)
	start := time.Now()

	ts, records := toToyStreams(streams)
	err := translateError(toy.Write(path, ts, o.writeOptions()))

	o.metricsCollector.RecordShardWrite(len(streams), records, time.Since(start), err)
	o.logger.LogShardWrite(context.Background(), path, len(streams), records, err)
	return err
}

// WriteShardBlob writes streams as a shard to store under name. The blob is
// published only when the whole shard has been written.
func WriteShardBlob(ctx context.Context, store blobstore.BlobStore, name string, streams []Stream, opts ...Option) error {
	o := applyOptions(opts)
	start := time.Now()

	ts, records := toToyStreams(streams)
	err := translateError(toy.WriteBlob(ctx, store, name, ts, o.writeOptions()))

	o.metricsCollector.RecordShardWrite(len(streams), records, time.Since(start), err)
	o.logger.LogShardWrite(ctx, name, len(streams), records, err)
	return err
}

// ReadShard reads every stream and the metadata of the shard at path.
func ReadShard(path string, opts ...Option) (*Shard, error) {
	o := applyOptions(opts)
	s, err := toy.Read(path, o.codec)
	if err != nil {
		return nil, translateError(err)
	}
	return fromToyShard(s), nil
}

// ReadShardBlob reads every stream and the metadata of a shard in store.
func ReadShardBlob(ctx context.Context, store blobstore.BlobStore, name string, opts ...Option) (*Shard, error) {
	o := applyOptions(opts)
	s, err := toy.ReadBlob(ctx, blobstore.RateLimited(store, o.ioLimit), name, o.codec)
	if err != nil {
		return nil, translateError(err)
	}
	return fromToyShard(s), nil
}

// Aggregate concatenates, per stream, the records of every shard file
// matching the filepath.Glob pattern. Shards are taken in lexicographic
// order of their paths; records keep their in-shard order.
//
// Without WithStreamNames the first shard defines the stream set and every
// other shard must carry exactly the same streams (ErrStreamSetMismatch).
// A stream whose record layout differs from the first shard's fails with
// *ErrLayoutMismatch. No matching shard fails with ErrNoShards. On any
// failure the result is nil.
func Aggregate(pattern string, opts ...Option) (map[string]*record.Array, error) {
	return aggregate(context.Background(), toy.FileSource{}, pattern, applyOptions(opts))
}

// AggregateStore is Aggregate over a blob store. pattern is matched against
// blob names with path.Match.
func AggregateStore(ctx context.Context, store blobstore.BlobStore, pattern string, opts ...Option) (map[string]*record.Array, error) {
	o := applyOptions(opts)
	return aggregate(ctx, toy.StoreSource{Store: blobstore.RateLimited(store, o.ioLimit)}, pattern, o)
}

func aggregate(ctx context.Context, src toy.Source, pattern string, o *options) (map[string]*record.Array, error) {
	start := time.Now()

	res, err := toy.Aggregate(ctx, src, pattern, toy.AggregateOptions{
		StreamNames: o.streamNames,
		Concurrency: o.concurrency,
		Logger:      o.logger.Logger,
	})
	err = translateError(err)

	if err != nil {
		o.metricsCollector.RecordAggregate(0, 0, time.Since(start), err)
		o.logger.LogAggregate(ctx, pattern, 0, 0, err)
		return nil, err
	}
	records := res.Records()
	o.metricsCollector.RecordAggregate(len(res.Shards), records, time.Since(start), nil)
	o.logger.LogAggregate(ctx, pattern, len(res.Shards), records, nil)
	return res.Streams, nil
}
