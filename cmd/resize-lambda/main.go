// Package main provides the Lambda entry point for resizing images.
//
// The function is triggered by S3 ObjectCreated events. For each new object
// it looks up the object's headers, and if the object is a supported image
// that this function did not produce itself, it writes one scaled copy per
// configured size next to the original.
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/resize-images/internal/config"
	"github.com/fpang/resize-images/internal/lambdaboot"
	"github.com/fpang/resize-images/internal/logging"
	"github.com/fpang/resize-images/internal/resize"
)

func main() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	for _, s := range cfg.InvalidSizes() {
		log.Warn().Str("size", s).Msg("Malformed size configured; it will fail on every invocation")
	}

	store, err := lambdaboot.NewObjectStore(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store")
	}

	h := &handler{
		store:     store,
		processor: resize.NewProcessor(store, cfg.ProcessorOptions(), log.Logger),
		namespace: cfg.MetricsNamespace,
		metrics:   os.Stdout,
	}

	lambdaboot.StartupLog("resize-lambda", initStart, cfg).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Log()

	lambda.Start(h.handle)
}
