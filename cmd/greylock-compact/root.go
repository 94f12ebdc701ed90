package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "greylock-compact",
		Short:   "Offline compaction and metrics inspection for a Greylock database",
		Version: version,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(runCmd())
	root.AddCommand(metricsCmd())
	return root
}
