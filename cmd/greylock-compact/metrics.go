package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ozhiganov/greylock/internal/kvengine"
	"github.com/Ozhiganov/greylock/internal/telemetry"
)

// metricsCmd implements `greylock-compact metrics`: a read-only snapshot
// of both stores' pebble.Metrics, grounded on the pack's
// server/pkg/store/metrics.go reflective walk (internal/telemetry.
// SnapshotPebbleMetrics), printed as JSON for operator consumption.
func metricsCmd() *cobra.Command {
	var docsPath, indexesPath string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print pebble metrics for the docs and indexes stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			if docsPath == "" || indexesPath == "" {
				return fmt.Errorf("--docs-path and --indexes-path are required")
			}
			engine, err := kvengine.Open(kvengine.Options{
				DocsPath:    docsPath,
				IndexesPath: indexesPath,
				Mode:        kvengine.ReadOnly,
			})
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer engine.Close()

			out := map[string]telemetry.PebbleMetrics{
				"docs":    telemetry.SnapshotPebbleMetrics(engine.DocsMetrics()),
				"indexes": telemetry.SnapshotPebbleMetrics(engine.IndexesMetrics()),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&docsPath, "docs-path", "", "path to the docs pebble store")
	cmd.Flags().StringVar(&indexesPath, "indexes-path", "", "path to the indexes pebble store")
	return cmd
}
