// Package testutil provides testing utilities for histostore.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source and helpers for generating bin edges,
// histograms and toy fit records.
//
// # Templates
//
//	rng := testutil.NewRNG(seed)
//	bins := testutil.UniformBins([]int{20, 10}, 0, 100)
//	hist := rng.Histogram(bins, 50)
//
// # Toy Records
//
//	fits := rng.FitRecords(shard, 1000)
//	arr, err := record.FromSlice(fits)
package testutil
