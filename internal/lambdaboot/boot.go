// Package lambdaboot provides the cold-start bootstrap shared by the resize
// Lambda and the CLI: AWS config, the object store, and startup logging.
package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/resize-images/internal/config"
	"github.com/fpang/resize-images/internal/logging"
	"github.com/fpang/resize-images/internal/storage"
)

// InitAWS loads the default AWS config.
func InitAWS(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg, nil
}

// S3Options applies endpoint overrides for S3-compatible services.
func S3Options(cfg config.StorageConfig) func(*s3.Options) {
	return func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3ForcePathStyle
	}
}

// NewObjectStore builds the configured storage backend.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case config.BackendS3:
		awsCfg, err := InitAWS(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(s3.NewFromConfig(awsCfg, S3Options(cfg))), nil
	case config.BackendMinio:
		store, err := storage.NewMinioStore(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio store: %w", err)
		}
		log.Debug().Str("endpoint", cfg.Minio.Endpoint).Msg("MinIO client created")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// StartupLog returns a startup logger pre-filled from the configuration.
// Secrets are never logged; only the backend and endpoint are.
func StartupLog(name string, initStart time.Time, cfg *config.Config) *logging.StartupLogger {
	s := logging.NewStartupLogger(name).
		InitDuration(time.Since(initStart)).
		Bucket("backend", cfg.Storage.Backend).
		Feature("deleteOriginal", cfg.Resize.DeleteOriginal).
		Feature("pathFilter", len(cfg.Resize.IncludePaths)+len(cfg.Resize.ExcludePaths) > 0).
		Config("sizes", fmt.Sprint(cfg.Resize.Sizes)).
		Config("quality", fmt.Sprint(cfg.Resize.Quality)).
		Config("metricsNamespace", cfg.MetricsNamespace)

	switch cfg.Storage.Backend {
	case config.BackendMinio:
		s.Bucket("endpoint", cfg.Storage.Minio.Endpoint)
	case config.BackendS3:
		if cfg.Storage.S3Endpoint != "" {
			s.Bucket("endpoint", cfg.Storage.S3Endpoint)
		}
	}
	if cfg.Resize.ResizedImagesPath != "" {
		s.Config("resizedImagesPath", cfg.Resize.ResizedImagesPath)
	}
	if cfg.Resize.ImageType != "" {
		s.Config("imageType", cfg.Resize.ImageType)
	}
	if cfg.Resize.CacheControl != "" {
		s.Config("cacheControl", cfg.Resize.CacheControl)
	}
	return s
}
