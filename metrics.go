package histostore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// observability.PrometheusCollector for a Prometheus implementation.
type MetricsCollector interface {
	// RecordEncode is called after each template encode.
	RecordEncode(duration time.Duration, err error)

	// RecordDecode is called after each template decode.
	RecordDecode(duration time.Duration, err error)

	// RecordShardWrite is called after each shard write with the number of
	// streams and records written.
	RecordShardWrite(streams, records int, duration time.Duration, err error)

	// RecordAggregate is called after each aggregation with the number of
	// shards merged and records produced.
	RecordAggregate(shards, records int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEncode(time.Duration, error)               {}
func (NoopMetricsCollector) RecordDecode(time.Duration, error)               {}
func (NoopMetricsCollector) RecordShardWrite(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordAggregate(int, int, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EncodeCount         atomic.Int64
	EncodeErrors        atomic.Int64
	EncodeTotalNanos    atomic.Int64
	DecodeCount         atomic.Int64
	DecodeErrors        atomic.Int64
	DecodeTotalNanos    atomic.Int64
	ShardWriteCount     atomic.Int64
	ShardWriteErrors    atomic.Int64
	ShardWriteRecords   atomic.Int64
	AggregateCount      atomic.Int64
	AggregateErrors     atomic.Int64
	AggregateShards     atomic.Int64
	AggregateRecords    atomic.Int64
	AggregateTotalNanos atomic.Int64
}

// RecordEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEncode(duration time.Duration, err error) {
	b.EncodeCount.Add(1)
	b.EncodeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EncodeErrors.Add(1)
	}
}

// RecordDecode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDecode(duration time.Duration, err error) {
	b.DecodeCount.Add(1)
	b.DecodeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DecodeErrors.Add(1)
	}
}

// RecordShardWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordShardWrite(streams, records int, duration time.Duration, err error) {
	b.ShardWriteCount.Add(1)
	if err != nil {
		b.ShardWriteErrors.Add(1)
		return
	}
	b.ShardWriteRecords.Add(int64(records))
}

// RecordAggregate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAggregate(shards, records int, duration time.Duration, err error) {
	b.AggregateCount.Add(1)
	b.AggregateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AggregateErrors.Add(1)
		return
	}
	b.AggregateShards.Add(int64(shards))
	b.AggregateRecords.Add(int64(records))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		EncodeCount:       b.EncodeCount.Load(),
		EncodeErrors:      b.EncodeErrors.Load(),
		EncodeAvgNanos:    avg(b.EncodeTotalNanos.Load(), b.EncodeCount.Load()),
		DecodeCount:       b.DecodeCount.Load(),
		DecodeErrors:      b.DecodeErrors.Load(),
		DecodeAvgNanos:    avg(b.DecodeTotalNanos.Load(), b.DecodeCount.Load()),
		ShardWriteCount:   b.ShardWriteCount.Load(),
		ShardWriteErrors:  b.ShardWriteErrors.Load(),
		ShardWriteRecords: b.ShardWriteRecords.Load(),
		AggregateCount:    b.AggregateCount.Load(),
		AggregateErrors:   b.AggregateErrors.Load(),
		AggregateShards:   b.AggregateShards.Load(),
		AggregateRecords:  b.AggregateRecords.Load(),
		AggregateAvgNanos: avg(b.AggregateTotalNanos.Load(), b.AggregateCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	EncodeCount       int64
	EncodeErrors      int64
	EncodeAvgNanos    int64
	DecodeCount       int64
	DecodeErrors      int64
	DecodeAvgNanos    int64
	ShardWriteCount   int64
	ShardWriteErrors  int64
	ShardWriteRecords int64
	AggregateCount    int64
	AggregateErrors   int64
	AggregateShards   int64
	AggregateRecords  int64
	AggregateAvgNanos int64
}
