// Package main provides a command-line tool for running the resize pipeline
// outside Lambda: against a bucket object, against a local file, or to
// inspect the configured sizes.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpang/resize-images/internal/logging"
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "resize-images",
	Short: "Create resized copies of images in object storage",
	Long: `resize-images runs the same pipeline as the resize Lambda.

Configuration comes from the environment (or a .env file in the working
directory) using the same variables as the deployed function.

Examples:
  resize-images process --bucket media --key photos/cat.jpg
  resize-images resize --in cat.jpg --out cat_small.webp --size 400x400 --format webp
  resize-images batch --dir ./photos --out-dir ./resized
  resize-images sizes photos/cat.jpg`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

func init() {
	rootCmd.AddCommand(newProcessCmd(), newResizeCmd(), newBatchCmd(), newSizesCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
