package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ozhiganov/greylock/internal/kvengine"
	"github.com/Ozhiganov/greylock/internal/telemetry"
)

// runCmd implements `greylock-compact run`: an offline, exclusive
// compaction of both stores, grounded on original_source/src/compact.cpp
// (opened in bulk/exclusive mode, no server contending for the same
// files). --size reproduces that program's chunking: rather than one
// Compact call across the whole keyspace, it walks the indexes store
// accumulating value bytes and issues one ranged Compact per chunk, so a
// crash or ^C mid-run has already durably compacted everything before it.
func runCmd() *cobra.Command {
	var docsPath, indexesPath string
	var sizeMB int64
	var cacheMB int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compact the docs and indexes stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			if docsPath == "" || indexesPath == "" {
				return fmt.Errorf("--docs-path and --indexes-path are required")
			}
			engine, err := kvengine.Open(kvengine.Options{
				DocsPath:    docsPath,
				IndexesPath: indexesPath,
				Mode:        kvengine.Bulk,
				CacheBytes:  int64(cacheMB) * 1024 * 1024,
			})
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer engine.Close()

			out := cmd.OutOrStdout()
			printMetrics(out, "before", engine)

			fmt.Fprintf(out, "compacting docs=%s indexes=%s in %d MiB chunks\n", docsPath, indexesPath, sizeMB)
			start := time.Now()
			if err := compactInChunks(engine, sizeMB*1024*1024); err != nil {
				return fmt.Errorf("compact: %w", err)
			}
			fmt.Fprintf(out, "compaction finished in %s\n", time.Since(start))

			printMetrics(out, "after", engine)
			return nil
		},
	}

	cmd.Flags().StringVar(&docsPath, "docs-path", "", "path to the docs pebble store")
	cmd.Flags().StringVar(&indexesPath, "indexes-path", "", "path to the indexes pebble store")
	cmd.Flags().Int64Var(&sizeMB, "size", 1024, "number of MiB to compact in one chunk")
	cmd.Flags().IntVar(&cacheMB, "cache-mb", 0, "block cache size in MiB (0 = pebble default)")
	return cmd
}

// compactInChunks walks the indexes store per
// original_source/src/compact.cpp's loop: accumulate keys until their
// values reach chunkBytes, then range-compact [start, end], repeating
// until the iterator is exhausted. Docs is the far smaller store and
// rides along on the same bounds each call; ranges outside its actual
// keyspace are a cheap no-op for pebble. A non-positive chunkBytes falls
// back to one unbounded call, matching the /v1/compact and cron paths.
func compactInChunks(engine *kvengine.Engine, chunkBytes int64) error {
	if chunkBytes <= 0 {
		return engine.Compact(nil, nil)
	}
	it, err := engine.IndexesIterator()
	if err != nil {
		return err
	}
	defer it.Close()

	for it.First(); it.Valid(); {
		start := append([]byte(nil), it.Key()...)
		end := start
		var chunkSize int64
		for it.Valid() && chunkSize < chunkBytes {
			end = append([]byte(nil), it.Key()...)
			chunkSize += int64(len(it.Value()))
			it.Next()
		}
		if err := engine.Compact(start, end); err != nil {
			return err
		}
	}
	return nil
}

func printMetrics(out io.Writer, label string, engine *kvengine.Engine) {
	docs := telemetry.SnapshotPebbleMetrics(engine.DocsMetrics())
	indexes := telemetry.SnapshotPebbleMetrics(engine.IndexesMetrics())
	fmt.Fprintf(out, "%s: docs.num-files=%.0f indexes.num-files=%.0f\n",
		label, docs.Find("Total.NumFiles"), indexes.Find("Total.NumFiles"))
}
