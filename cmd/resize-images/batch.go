package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/resize-images/internal/config"
	"github.com/fpang/resize-images/internal/filehandler"
	"github.com/fpang/resize-images/internal/resize"
)

func newBatchCmd() *cobra.Command {
	var dir, outDir string
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Resize every image in a local directory using the configured sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = dir
			}
			return runBatch(cmd, cfg.ProcessorOptions(), dir, outDir, maxDepth)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory containing images")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Directory for resized images (default: --dir)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum recursion depth (0 = unlimited)")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func runBatch(cmd *cobra.Command, opts resize.Options, dir, outDir string, maxDepth int) error {
	sizes := resize.UniqueSizes(opts.Sizes)
	files, err := filehandler.ScanImages(dir, filehandler.ScanOptions{
		MaxDepth: maxDepth,
		Skip:     func(rel string) bool { return resize.IsResizedName(rel, sizes) },
	})
	if err != nil {
		return err
	}

	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(limit)

	var written, failed atomic.Int64
	for _, rel := range files {
		srcFormat, _ := filehandler.FormatFromExtension(filepath.Ext(rel))
		format, ext := srcFormat, filepath.Ext(rel)
		if opts.OutputFormat != "" {
			format, ext = opts.OutputFormat, opts.OutputFormat.Extension()
		}

		for _, raw := range sizes {
			g.Go(func() error {
				logger := log.With().Str("file", rel).Str("size", raw).Logger()
				s, err := resize.ParseSize(raw)
				if err != nil {
					failed.Add(1)
					logger.Error().Err(err).Msg("Invalid size")
					return nil
				}
				dst := filepath.Join(outDir, filepath.FromSlash(resize.ResizedKey(rel, opts.ResizedImagesPath, raw, ext)))
				if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
					failed.Add(1)
					logger.Error().Err(err).Msg("Failed to create output directory")
					return nil
				}
				src := filepath.Join(dir, filepath.FromSlash(rel))
				if _, err := filehandler.ResizeFile(src, dst, filehandler.ResizeOptions{
					Width:   s.Width,
					Height:  s.Height,
					Format:  format,
					Quality: opts.Quality,
				}); err != nil {
					failed.Add(1)
					logger.Error().Err(err).Msg("Failed to resize image")
					return nil
				}
				written.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()

	fmt.Fprintf(cmd.OutOrStdout(), "%d images, %d outputs written, %d failed\n", len(files), written.Load(), failed.Load())
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d outputs failed", n)
	}
	return nil
}
