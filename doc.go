// Package histostore reads and writes histogram templates and toy-result
// shards in a self-describing hierarchical container format, and merges shard
// sets into one record array per stream.
//
// # Templates
//
// A template is a set of N-dimensional histograms sharing one binning:
//
//	bins := [][]float64{{0, 1, 2, 3}, {0, 10, 20}}
//	h := ndarray.Zeros(3, 2)
//
//	err := histostore.EncodeTemplate("signal.hsc", bins, []*ndarray.Array{h},
//	    histostore.WithHistogramNames([]string{"signal"}),
//	    histostore.WithAxisNames([]string{"cs1", "cs2"}),
//	)
//
//	tmpl, err := histostore.DecodeTemplate("signal.hsc")
//
// Template metadata is scalar-only (ScalarMetadata). Without WithMetadata,
// {version: "0.0", date: <now>} is written.
//
// # Toy shards
//
// Each batch job writes one shard holding named record streams:
//
//	type fit struct {
//	    Mu    float64 `rec:"mu"`
//	    Sigma float64 `rec:"sigma"`
//	}
//	arr, _ := record.FromSlice(results)
//	err := histostore.WriteShard("toys/shard_000.hsc",
//	    []histostore.Stream{{Name: "fits", Records: arr}},
//	    histostore.WithShardMetadata(histostore.JSONMetadata{"seed": 4711}),
//	)
//
// Shard metadata is stored as JSON text (JSONMetadata) and may be nested.
//
// # Aggregation
//
//	streams, err := histostore.Aggregate("toys/shard_*.hsc")
//
// Shards are taken in lexicographic order of their paths, and every stream is
// concatenated in that order. All shards must carry the same streams (or the
// ones named with WithStreamNames) with identical record layouts; any
// mismatch fails the whole call. AggregateStore does the same over a
// blobstore.BlobStore (local, memory, S3, MinIO).
//
// # Optional adapters
//
// Conversions to and from external histogram object models and analysis
// framework files are available once a provider registers itself with
// RegisterHistddBuilder or RegisterNativeReader. Without a provider they fail
// with ErrCapabilityMissing; everything else keeps working.
//
// # Errors
//
// Failures match one of the exported error kinds via errors.Is (for example
// ErrArgumentMismatch, ErrMissingKey, ErrTypeLayoutMismatch). Writes are
// all-or-nothing: a failed write never leaves a container behind.
package histostore
