package benchmark_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hupe1980/histostore"
	"github.com/hupe1980/histostore/blobstore"
	"github.com/hupe1980/histostore/container"
	"github.com/hupe1980/histostore/ndarray"
	"github.com/hupe1980/histostore/record"
	"github.com/hupe1980/histostore/testutil"
)

var compressions = []container.Compression{
	container.CompressionNone,
	container.CompressionLZ4,
	container.CompressionZSTD,
}

func templateFixture(rng *testutil.RNG, n int) ([][]float64, []*ndarray.Array) {
	bins := testutil.UniformBins([]int{40, 20, 10}, 0, 100)
	hists := make([]*ndarray.Array, n)
	for i := range hists {
		hists[i] = rng.Histogram(bins, 25)
	}
	return bins, hists
}

func BenchmarkEncodeTemplate(b *testing.B) {
	rng := testutil.NewRNG(42)
	bins, hists := templateFixture(rng, 8)

	for _, c := range compressions {
		b.Run(c.String(), func(b *testing.B) {
			path := filepath.Join(b.TempDir(), "tmpl.hsc")
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := histostore.EncodeTemplate(path, bins, hists, histostore.WithCompression(c)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecodeTemplate(b *testing.B) {
	rng := testutil.NewRNG(42)
	bins, hists := templateFixture(rng, 8)

	for _, c := range compressions {
		b.Run(c.String(), func(b *testing.B) {
			path := filepath.Join(b.TempDir(), "tmpl.hsc")
			if err := histostore.EncodeTemplate(path, bins, hists, histostore.WithCompression(c)); err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := histostore.DecodeTemplate(path); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func shardStreams(b *testing.B, rng *testutil.RNG, shard, n int) []histostore.Stream {
	b.Helper()
	fits, err := record.FromSlice(rng.FitRecords(shard, n))
	if err != nil {
		b.Fatal(err)
	}
	truth, err := record.FromSlice(rng.FitRecords(shard, 1))
	if err != nil {
		b.Fatal(err)
	}
	return []histostore.Stream{
		{Name: "fits", Records: fits},
		{Name: "truth", Records: truth},
	}
}

func BenchmarkAggregate(b *testing.B) {
	const shards, perShard = 32, 2000

	rng := testutil.NewRNG(42)
	dir := b.TempDir()
	for s := 0; s < shards; s++ {
		path := filepath.Join(dir, fmt.Sprintf("toys_%03d.hsc", s))
		if err := histostore.WriteShard(path, shardStreams(b, rng, s, perShard), histostore.WithCompression(container.CompressionLZ4)); err != nil {
			b.Fatal(err)
		}
	}

	for _, workers := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				res, err := histostore.Aggregate(filepath.Join(dir, "toys_*.hsc"), histostore.WithConcurrency(workers))
				if err != nil {
					b.Fatal(err)
				}
				if res["fits"].Len() != shards*perShard {
					b.Fatalf("got %d fits", res["fits"].Len())
				}
			}
		})
	}
}

// BenchmarkAggregateStore_Latency shows how concurrent shard reads hide
// per-request store latency.
func BenchmarkAggregateStore_Latency(b *testing.B) {
	const shards, perShard = 16, 500

	ctx := context.Background()
	rng := testutil.NewRNG(42)
	mem := blobstore.NewMemoryStore()
	for s := 0; s < shards; s++ {
		name := fmt.Sprintf("toys_%03d.hsc", s)
		if err := histostore.WriteShardBlob(ctx, mem, name, shardStreams(b, rng, s, perShard)); err != nil {
			b.Fatal(err)
		}
	}
	store := newRemoteStore(mem, cloudLatency)

	for _, workers := range []int{1, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			store.requests.Store(0)
			for i := 0; i < b.N; i++ {
				if _, err := histostore.AggregateStore(ctx, store, "toys_*.hsc", histostore.WithConcurrency(workers)); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(store.requests.Load())/float64(b.N), "requests/op")
		})
	}
}
