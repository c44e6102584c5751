// lgrbench is a small demo/benchmark binary for the lgr package: it starts
// the backend, logs a burst of messages through a configurable sink, flushes,
// and reports throughput. Not part of the importable API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lgrbench",
	Short: "Demo and throughput benchmark for the lgr logging core",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(demoCmd)

	runCmd.Flags().Int("messages", 100000, "number of log calls per producer goroutine")
	runCmd.Flags().Int("producers", 4, "number of concurrent producer goroutines")
	runCmd.Flags().String("sink", "console", "sink to log through: console, json, file, or discard")
	runCmd.Flags().String("file", "lgrbench.log", "path used when --sink=file")
	runCmd.Flags().Bool("drop", false, "use the Drop queue-full policy instead of Block")
}
