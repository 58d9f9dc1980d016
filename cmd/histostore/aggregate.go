package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/histostore"
	"github.com/hupe1980/histostore/record"
)

// ErrNoOutput is returned when the --output flag is not set.
var ErrNoOutput = errors.New("output shard is required (use --output)")

func newAggregateCommand(a *app) *cobra.Command {
	var (
		output      string
		streams     []string
		concurrency int
		ioLimit     int
		remote      bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate <pattern>",
		Short: "Concatenate matching shards into one shard",
		Long: `aggregate concatenates, per stream, the records of every shard matching
the pattern and writes them as a single shard. Shards are taken in sorted
name order. With --remote the pattern and the output refer to blobs in the
configured store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return ErrNoOutput
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = a.cfg.Aggregate.Concurrency
			}
			if !cmd.Flags().Changed("io-limit") {
				ioLimit = a.cfg.Aggregate.IOLimitBytes
			}
			return a.runAggregate(cmd, args[0], output, streams, concurrency, ioLimit, remote)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output shard")
	cmd.Flags().StringSliceVarP(&streams, "streams", "s", nil, "streams to aggregate (default: all streams of the first shard)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "shards read at once (default from config)")
	cmd.Flags().IntVar(&ioLimit, "io-limit", 0, "cap remote shard reads in bytes per second, 0 is unlimited (default from config)")
	cmd.Flags().BoolVar(&remote, "remote", false, "read and write shards in the configured store")

	return cmd
}

func (a *app) runAggregate(cmd *cobra.Command, pattern, output string, streams []string, concurrency, ioLimit int, remote bool) error {
	ctx := cmd.Context()

	compression, err := a.cfg.CompressionType()
	if err != nil {
		return err
	}
	c, err := a.cfg.CodecImpl()
	if err != nil {
		return err
	}

	metrics := &histostore.BasicMetricsCollector{}
	opts := []histostore.Option{
		histostore.WithLogger(a.logger),
		histostore.WithMetrics(metrics),
		histostore.WithCodec(c),
		histostore.WithCompression(compression),
		histostore.WithConcurrency(concurrency),
		histostore.WithIOLimit(ioLimit),
	}
	if len(streams) > 0 {
		opts = append(opts, histostore.WithStreamNames(streams))
	}

	start := time.Now()
	var merged map[string]*record.Array
	if remote {
		store, err := openStore(ctx, a.cfg.Store)
		if err != nil {
			return err
		}
		if merged, err = histostore.AggregateStore(ctx, store, pattern, opts...); err != nil {
			return err
		}
		md := outputMetadata(pattern)
		err = histostore.WriteShardBlob(ctx, store, output, toStreams(merged), append(opts, histostore.WithShardMetadata(md))...)
		if err != nil {
			return err
		}
	} else {
		if merged, err = histostore.Aggregate(pattern, opts...); err != nil {
			return err
		}
		md := outputMetadata(pattern)
		if err := histostore.WriteShard(output, toStreams(merged), append(opts, histostore.WithShardMetadata(md))...); err != nil {
			return err
		}
	}

	stats := metrics.GetStats()
	fmt.Fprintf(cmd.OutOrStdout(), "aggregated %s shards, %s records in %d streams into %s (%s)\n",
		humanize.Comma(stats.AggregateShards),
		humanize.Comma(stats.AggregateRecords),
		len(merged),
		output,
		time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func outputMetadata(pattern string) histostore.JSONMetadata {
	md := histostore.DefaultJSONMetadata()
	md["source"] = pattern
	return md
}

func toStreams(merged map[string]*record.Array) []histostore.Stream {
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]histostore.Stream, len(names))
	for i, name := range names {
		out[i] = histostore.Stream{Name: name, Records: merged[name]}
	}
	return out
}
