// Command greylock-compact is the standalone compaction and metrics CLI
// of SPEC_FULL §12, adapted from original_source/src/compact.cpp and
// grounded in Go idiom on the teacher's clients/cli/cmd cobra command
// tree (root.go's Execute/init pattern, inspect.go's direct
// pebble.Open(ReadOnly) idiom for offline database inspection).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
