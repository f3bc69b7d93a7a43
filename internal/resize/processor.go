// Package resize implements the resize pipeline run for each finalized
// object: validate, download, fan out one resize-and-upload task per
// configured size, clean up, and optionally delete the original.
package resize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/resize-images/internal/filehandler"
	"github.com/fpang/resize-images/internal/storage"
)

// ResizeFunc produces one scaled file from a local original.
type ResizeFunc func(src, dst string, opts filehandler.ResizeOptions) (filehandler.ResizeInfo, error)

// Options is the fixed per-deployment configuration of a Processor.
type Options struct {
	// Sizes are raw size strings. Duplicates are dropped by NewProcessor.
	// A malformed entry fails only its own task.
	Sizes []string

	ResizedImagesPath string
	CacheControl      string
	DeleteOriginal    bool

	// OutputFormat converts every output; empty keeps the original format.
	OutputFormat filehandler.Format
	Quality      int

	ScratchDir string

	// MaxConcurrency bounds the number of sizes processed at once; 0 means no bound.
	MaxConcurrency int

	Filter PathFilter
}

// Result is the outcome of one size.
type Result struct {
	Size    string
	Success bool
	Key     string
	Err     error
}

// Report summarises one invocation.
type Report struct {
	Bucket          string
	Key             string
	SkipReason      string
	Results         []Result
	OriginalDeleted bool
	Duration        time.Duration
}

// Skipped reports whether validation rejected the object.
func (r *Report) Skipped() bool {
	return r.SkipReason != ""
}

// Failures returns the number of sizes that did not upload.
func (r *Report) Failures() int {
	n := 0
	for _, res := range r.Results {
		if !res.Success {
			n++
		}
	}
	return n
}

// Processor runs the pipeline. It holds only immutable configuration and
// the store, so one value may serve concurrent invocations.
type Processor struct {
	store    storage.ObjectStore
	opts     Options
	logger   zerolog.Logger
	resize   ResizeFunc
	newToken func() string
}

// NewProcessor builds a Processor using filehandler.ResizeFile.
func NewProcessor(store storage.ObjectStore, opts Options, logger zerolog.Logger) *Processor {
	opts.Sizes = UniqueSizes(opts.Sizes)
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}
	return &Processor{
		store:    store,
		opts:     opts,
		logger:   logger,
		resize:   filehandler.ResizeFile,
		newToken: uuid.NewString,
	}
}

// Sizes returns the deduplicated size list in processing order.
func (p *Processor) Sizes() []string {
	return append([]string(nil), p.opts.Sizes...)
}

// Process runs the pipeline for obj. The only error returned is a download
// failure (wrapping ErrDownload), left to the caller to log; per-size
// failures are reported in the Report and logged here. Scratch files are removed on every path.
func (p *Processor) Process(ctx context.Context, obj Object) (*Report, error) {
	start := time.Now()
	logger := p.logger.With().Str("bucket", obj.Bucket).Str("key", obj.Key).Logger()
	report := &Report{Bucket: obj.Bucket, Key: obj.Key}
	defer func() { report.Duration = time.Since(start) }()

	if ok, reason := Validate(obj, p.opts.Filter); !ok {
		logger.Info().Str("reason", reason).Str("contentType", obj.ContentType).Msg("Skipping object")
		report.SkipReason = reason
		return report, nil
	}

	localOriginal := ScratchPath(p.opts.ScratchDir, obj.Key)
	defer removeScratch(logger, localOriginal)

	if err := os.MkdirAll(filepath.Dir(localOriginal), 0o755); err != nil {
		return report, fmt.Errorf("%w: %s: %w", ErrDownload, obj.Key, err)
	}
	if err := p.store.Download(ctx, obj.Bucket, obj.Key, localOriginal); err != nil {
		return report, fmt.Errorf("%w: %s: %w", ErrDownload, obj.Key, err)
	}
	logger.Debug().Str("localPath", localOriginal).Msg("Original downloaded")

	format, ext := p.outputFormat(obj)

	// Each task writes only its own slot; no task cancels another.
	results := make([]Result, len(p.opts.Sizes))
	var g errgroup.Group
	if p.opts.MaxConcurrency > 0 {
		g.SetLimit(p.opts.MaxConcurrency)
	}
	for i, size := range p.opts.Sizes {
		g.Go(func() error {
			results[i] = p.resizeAndUpload(ctx, logger, obj, localOriginal, size, format, ext)
			return nil
		})
	}
	_ = g.Wait()
	report.Results = results

	if n := report.Failures(); n > 0 {
		logger.Error().
			Int("failed", n).
			Int("sizes", len(results)).
			Msg("resize failed for one or more sizes")
		return report, nil
	}

	logger.Info().Int("sizes", len(results)).Msg("All sizes resized and uploaded")

	if p.opts.DeleteOriginal {
		if err := p.store.Delete(ctx, obj.Bucket, obj.Key); err != nil {
			logger.Error().Err(err).Msg("Failed to delete original")
		} else {
			report.OriginalDeleted = true
			logger.Info().Msg("Original deleted")
		}
	}
	return report, nil
}

func (p *Processor) resizeAndUpload(ctx context.Context, logger zerolog.Logger, obj Object, localOriginal, rawSize string, format filehandler.Format, ext string) Result {
	logger = logger.With().Str("size", rawSize).Logger()
	result := Result{Size: rawSize}

	size, err := ParseSize(rawSize)
	if err != nil {
		result.Err = err
		logger.Error().Err(err).Msg("Invalid size")
		return result
	}

	key := ResizedKey(obj.Key, p.opts.ResizedImagesPath, rawSize, ext)
	localResized := ScratchPath(p.opts.ScratchDir, key)
	defer removeScratch(logger, localResized)

	if err := os.MkdirAll(filepath.Dir(localResized), 0o755); err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrResize, err)
		logger.Error().Err(result.Err).Msg("Failed to create scratch directory")
		return result
	}

	info, err := p.resize(localOriginal, localResized, filehandler.ResizeOptions{
		Width:   size.Width,
		Height:  size.Height,
		Format:  format,
		Quality: p.opts.Quality,
	})
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrResize, err)
		logger.Error().Err(result.Err).Msg("Failed to resize image")
		return result
	}

	meta := BuildMetadata(obj.ObjectMetadata, format.ContentType(), p.opts.CacheControl, p.newToken)
	if err := p.store.Upload(ctx, obj.Bucket, key, localResized, meta); err != nil {
		result.Err = fmt.Errorf("%w: %s: %w", ErrUpload, key, err)
		logger.Error().Err(result.Err).Msg("Failed to upload resized image")
		return result
	}

	logger.Info().
		Str("resizedKey", key).
		Int("width", info.Width).
		Int("height", info.Height).
		Bool("scaled", info.Resized).
		Msg("Resized image uploaded")

	result.Success = true
	result.Key = key
	return result
}

// outputFormat returns the encoding and file extension for outputs of obj.
// Without a configured conversion the original format and extension are kept.
func (p *Processor) outputFormat(obj Object) (filehandler.Format, string) {
	if p.opts.OutputFormat != "" {
		return p.opts.OutputFormat, p.opts.OutputFormat.Extension()
	}
	// Validate has already accepted the content type.
	format, _ := filehandler.FormatFromContentType(obj.ContentType)
	ext := path.Ext(obj.Key)
	if ext == "" {
		ext = format.Extension()
	}
	return format, ext
}

// removeScratch deletes a local scratch file. Failures are logged only.
func removeScratch(logger zerolog.Logger, localPath string) {
	if err := os.Remove(localPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Str("localPath", localPath).Msg("Failed to remove scratch file")
	}
}
