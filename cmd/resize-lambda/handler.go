package main

import (
	"context"
	"errors"
	"io"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/fpang/resize-images/internal/metrics"
	"github.com/fpang/resize-images/internal/resize"
	"github.com/fpang/resize-images/internal/storage"
)

// Invocation outcomes, used as the Outcome metric dimension.
const (
	outcomeResized = "resized"
	outcomePartial = "partial"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

type processor interface {
	Process(ctx context.Context, obj resize.Object) (*resize.Report, error)
}

type handler struct {
	store     storage.ObjectStore
	processor processor
	namespace string
	metrics   io.Writer

	warm bool
}

// handle processes every record in the event. It always returns nil: a
// retried event would redo the sizes that already succeeded.
func (h *handler) handle(ctx context.Context, event events.S3Event) error {
	if !h.warm {
		h.warm = true
		log.Info().Str("function", "resize-lambda").Msg("Cold start, first invocation")
	}

	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			log.Error().Err(err).Str("bucket", bucket).Str("rawKey", record.S3.Object.Key).Msg("Undecodable object key")
			continue
		}
		h.processRecord(ctx, bucket, key)
	}
	return nil
}

func (h *handler) processRecord(ctx context.Context, bucket, key string) {
	logger := log.With().Str("bucket", bucket).Str("key", key).Logger()

	meta, err := h.store.Stat(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Msg("Object no longer exists, skipping")
		} else {
			logger.Error().Err(err).Msg("Failed to read object metadata")
		}
		h.emit(key, nil, outcomeFailed)
		return
	}

	report, err := h.processor.Process(ctx, resize.Object{Bucket: bucket, Key: key, ObjectMetadata: meta})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to process object")
		h.emit(key, report, outcomeFailed)
		return
	}
	h.emit(key, report, outcomeOf(report))
}

func outcomeOf(report *resize.Report) string {
	switch {
	case report.Skipped():
		return outcomeSkipped
	case report.Failures() == 0:
		return outcomeResized
	case report.Failures() < len(report.Results):
		return outcomePartial
	default:
		return outcomeFailed
	}
}

func (h *handler) emit(key string, report *resize.Report, outcome string) {
	rec := metrics.New(h.namespace).
		Output(h.metrics).
		Dimension("Outcome", outcome).
		Count("Invocations").
		Property("key", key)

	if report != nil {
		rec.Duration("DurationMs", report.Duration)
		if report.Skipped() {
			rec.Property("skipReason", report.SkipReason)
		} else {
			failures := report.Failures()
			rec.Metric("SizesResized", float64(len(report.Results)-failures), metrics.UnitCount).
				Metric("SizesFailed", float64(failures), metrics.UnitCount).
				Property("originalDeleted", report.OriginalDeleted)
		}
	}
	rec.Flush()
}
