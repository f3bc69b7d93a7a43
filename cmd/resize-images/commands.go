package main

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/resize-images/internal/config"
	"github.com/fpang/resize-images/internal/filehandler"
	"github.com/fpang/resize-images/internal/lambdaboot"
	"github.com/fpang/resize-images/internal/resize"
)

func newProcessCmd() *cobra.Command {
	var bucket, key string
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Resize one object in a bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := lambdaboot.NewObjectStore(ctx, cfg.Storage)
			if err != nil {
				return err
			}

			meta, err := store.Stat(ctx, bucket, key)
			if err != nil {
				return fmt.Errorf("stat %s/%s: %w", bucket, key, err)
			}
			p := resize.NewProcessor(store, cfg.ProcessorOptions(), log.Logger)
			report, err := p.Process(ctx, resize.Object{Bucket: bucket, Key: key, ObjectMetadata: meta})
			if err != nil {
				return err
			}
			return printReport(cmd, report)
		},
	}
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "Bucket containing the object")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Object key")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func printReport(cmd *cobra.Command, report *resize.Report) error {
	out := cmd.OutOrStdout()
	if report.Skipped() {
		fmt.Fprintf(out, "skipped %s: %s\n", report.Key, report.SkipReason)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SIZE\tSTATUS\tKEY")
	for _, r := range report.Results {
		if r.Success {
			fmt.Fprintf(w, "%s\tok\t%s\n", r.Size, r.Key)
		} else {
			fmt.Fprintf(w, "%s\tfailed\t%v\n", r.Size, r.Err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if report.OriginalDeleted {
		fmt.Fprintf(out, "deleted original %s\n", report.Key)
	}
	fmt.Fprintf(out, "done in %s\n", report.Duration.Round(time.Millisecond))

	if n := report.Failures(); n > 0 {
		return fmt.Errorf("%d of %d sizes failed", n, len(report.Results))
	}
	return nil
}

func newResizeCmd() *cobra.Command {
	var in, out, size, format string
	var quality int
	cmd := &cobra.Command{
		Use:   "resize",
		Short: "Resize a local image file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resize.ParseSize(size)
			if err != nil {
				return err
			}
			opts := filehandler.ResizeOptions{Width: s.Width, Height: s.Height, Quality: quality}
			if format != "" {
				if opts.Format, err = filehandler.ParseFormat(format); err != nil {
					return err
				}
			} else if opts.Format, err = filehandler.ParseFormat(strings.TrimPrefix(filepath.Ext(out), ".")); err != nil {
				return errors.New("cannot infer output format from --out; pass --format")
			}

			info, err := filehandler.ResizeFile(in, out, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d -> %dx%d (%s)\n",
				out, info.OrigWidth, info.OrigHeight, info.Width, info.Height, opts.Format)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "Input image file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output image file")
	cmd.Flags().StringVarP(&size, "size", "s", "", "Bounding box, e.g. 400x400 or auto,300")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: jpeg, png, tiff, webp (default: from --out extension)")
	cmd.Flags().IntVarP(&quality, "quality", "q", filehandler.DefaultQuality, "Encoder quality for jpeg and webp (1-100)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("size")
	return cmd
}

func newSizesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sizes [key]",
		Short: "List the configured sizes and, for a key, the objects they produce",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return printSizes(cmd, cfg, args)
		},
	}
}

func printSizes(cmd *cobra.Command, cfg *config.Config, args []string) error {
	opts := cfg.ProcessorOptions()
	ext := ""
	if opts.OutputFormat != "" {
		ext = opts.OutputFormat.Extension()
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	header := "SIZE\tWIDTH\tHEIGHT"
	if len(args) == 1 {
		header += "\tKEY"
	}
	fmt.Fprintln(w, header)

	for _, raw := range resize.UniqueSizes(opts.Sizes) {
		s, err := resize.ParseSize(raw)
		if err != nil {
			fmt.Fprintf(w, "%s\tinvalid\tinvalid", raw)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s", raw, dimension(s.Width), dimension(s.Height))
		}
		if len(args) == 1 {
			keyExt := ext
			if keyExt == "" {
				keyExt = path.Ext(args[0])
			}
			fmt.Fprintf(w, "\t%s", resize.ResizedKey(args[0], opts.ResizedImagesPath, raw, keyExt))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func dimension(v int) string {
	if v == 0 {
		return "auto"
	}
	return fmt.Sprint(v)
}
