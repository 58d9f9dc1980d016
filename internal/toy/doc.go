// Package toy writes and reads toy-result shards and aggregates shard sets.
//
// A shard container stores its metadata as JSON text root attributes and one
// record-array dataset per stream at fits/<name>. Aggregation concatenates
// each stream across every shard matching a pattern, in sorted shard order.
package toy
