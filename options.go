package histostore

import (
	"github.com/hupe1980/histostore/codec"
	"github.com/hupe1980/histostore/container"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	codec            codec.Codec
	compression      container.Compression

	// Templates.
	histogramNames []string
	axisNames      []string
	metadata       ScalarMetadata
	validateShape  bool

	// Shards.
	shardMetadata JSONMetadata

	// Aggregation.
	streamNames []string
	concurrency int
	ioLimit     int
}

// Option configures encode, decode, shard and aggregation calls.
//
// Options that do not apply to a call are ignored.
type Option func(*options)

func applyOptions(opts []Option) *options {
	o := &options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		codec:            codec.Default,
		compression:      container.CompressionNone,
		concurrency:      1,
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics sets the metrics collector. If nil is passed, metrics are disabled.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metricsCollector = m
	}
}

// WithCodec sets the JSON codec used for shard metadata.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression sets the block encoding of every dataset written.
// The default is no compression.
func WithCompression(c container.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithHistogramNames names the histograms on encode, or selects them on decode.
// On encode the default is "0", "1", ...; on decode every histogram is read.
func WithHistogramNames(names []string) Option {
	return func(o *options) {
		o.histogramNames = names
	}
}

// WithAxisNames names the template axes. The default is an empty name per axis.
func WithAxisNames(names []string) Option {
	return func(o *options) {
		o.axisNames = names
	}
}

// WithMetadata sets the template metadata. It replaces the default metadata
// entirely; the two are never merged.
func WithMetadata(md ScalarMetadata) Option {
	return func(o *options) {
		o.metadata = md
	}
}

// WithShapeValidation makes EncodeTemplate check that every histogram has one
// dimension per axis with len(edges)-1 cells.
func WithShapeValidation() Option {
	return func(o *options) {
		o.validateShape = true
	}
}

// WithShardMetadata sets the shard metadata. It replaces the default metadata
// entirely.
func WithShardMetadata(md JSONMetadata) Option {
	return func(o *options) {
		o.shardMetadata = md
	}
}

// WithStreamNames restricts aggregation to the named streams. Every shard
// must contain all of them.
func WithStreamNames(names []string) Option {
	return func(o *options) {
		o.streamNames = names
	}
}

// WithConcurrency sets how many shards are read at once during aggregation.
// Results are always concatenated in sorted shard order. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// WithIOLimit caps blob store reads of ReadShardBlob and AggregateStore at
// bytesPerSec bytes per second, shared by all concurrent shard reads of the
// call. Zero or a negative value means unlimited.
func WithIOLimit(bytesPerSec int) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}
