// Package config loads the deployment configuration of the resize function
// from environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fpang/resize-images/internal/filehandler"
	"github.com/fpang/resize-images/internal/resize"
	"github.com/fpang/resize-images/internal/storage"
)

// Storage backends.
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
)

// Config is the full deployment configuration.
type Config struct {
	Resize  ResizeConfig
	Storage StorageConfig

	MetricsNamespace string
}

// ResizeConfig drives the resize pipeline.
type ResizeConfig struct {
	Sizes             []string
	ResizedImagesPath string
	CacheControl      string
	DeleteOriginal    bool
	ImageType         string
	Quality           int
	IncludePaths      []string
	ExcludePaths      []string
	ScratchDir        string
	MaxConcurrency    int
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Backend string

	// S3 overrides for S3-compatible endpoints such as LocalStack.
	S3Endpoint       string
	S3ForcePathStyle bool

	Minio storage.MinioConfig
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("IMG_SIZES", "200x200")
	v.SetDefault("RESIZED_IMAGES_PATH", "")
	v.SetDefault("CACHE_CONTROL_HEADER", "")
	v.SetDefault("DELETE_ORIGINAL_FILE", false)
	v.SetDefault("IMAGE_TYPE", "")
	v.SetDefault("IMAGE_QUALITY", filehandler.DefaultQuality)
	v.SetDefault("INCLUDE_PATH_LIST", "")
	v.SetDefault("EXCLUDE_PATH_LIST", "")
	v.SetDefault("SCRATCH_DIR", "")
	v.SetDefault("MAX_CONCURRENCY", 0)
	v.SetDefault("STORAGE_BACKEND", BackendS3)
	v.SetDefault("AWS_ENDPOINT_URL_S3", "")
	v.SetDefault("AWS_S3_FORCE_PATH_STYLE", false)
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_USE_SSL", true)
	v.SetDefault("MINIO_REGION", "")
	v.SetDefault("METRICS_NAMESPACE", "ResizeImages")

	v.AutomaticEnv()

	cfg := &Config{
		Resize: ResizeConfig{
			Sizes:             resize.SplitSizeList(v.GetString("IMG_SIZES")),
			ResizedImagesPath: strings.Trim(v.GetString("RESIZED_IMAGES_PATH"), "/"),
			CacheControl:      v.GetString("CACHE_CONTROL_HEADER"),
			DeleteOriginal:    v.GetBool("DELETE_ORIGINAL_FILE"),
			ImageType:         strings.ToLower(strings.TrimSpace(v.GetString("IMAGE_TYPE"))),
			Quality:           v.GetInt("IMAGE_QUALITY"),
			IncludePaths:      splitPathList(v.GetString("INCLUDE_PATH_LIST")),
			ExcludePaths:      splitPathList(v.GetString("EXCLUDE_PATH_LIST")),
			ScratchDir:        v.GetString("SCRATCH_DIR"),
			MaxConcurrency:    v.GetInt("MAX_CONCURRENCY"),
		},
		Storage: StorageConfig{
			Backend:          strings.ToLower(v.GetString("STORAGE_BACKEND")),
			S3Endpoint:       v.GetString("AWS_ENDPOINT_URL_S3"),
			S3ForcePathStyle: v.GetBool("AWS_S3_FORCE_PATH_STYLE"),
			Minio: storage.MinioConfig{
				Endpoint:  v.GetString("MINIO_ENDPOINT"),
				AccessKey: v.GetString("MINIO_ACCESS_KEY"),
				SecretKey: v.GetString("MINIO_SECRET_KEY"),
				UseSSL:    v.GetBool("MINIO_USE_SSL"),
				Region:    v.GetString("MINIO_REGION"),
			},
		},
		MetricsNamespace: v.GetString("METRICS_NAMESPACE"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configuration the function cannot start with. Malformed
// individual sizes are allowed here; they fail their own task at run time.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Resize.Sizes) == 0 {
		errs = append(errs, errors.New("IMG_SIZES: no sizes configured"))
	}
	if c.Resize.ImageType != "" {
		if _, err := filehandler.ParseFormat(c.Resize.ImageType); err != nil {
			errs = append(errs, fmt.Errorf("IMAGE_TYPE: %w", err))
		}
	}
	if c.Resize.Quality < 1 || c.Resize.Quality > 100 {
		errs = append(errs, fmt.Errorf("IMAGE_QUALITY: %d is outside 1-100", c.Resize.Quality))
	}
	if c.Resize.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENCY: %d is negative", c.Resize.MaxConcurrency))
	}
	switch c.Storage.Backend {
	case BackendS3:
	case BackendMinio:
		if c.Storage.Minio.Endpoint == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT: required for the minio backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", c.Storage.Backend))
	}
	return errors.Join(errs...)
}

// InvalidSizes returns the configured sizes that do not parse.
func (c *Config) InvalidSizes() []string {
	var bad []string
	for _, s := range c.Resize.Sizes {
		if _, err := resize.ParseSize(s); err != nil {
			bad = append(bad, s)
		}
	}
	return bad
}

// ProcessorOptions maps the configuration onto resize.Options.
func (c *Config) ProcessorOptions() resize.Options {
	var format filehandler.Format
	if c.Resize.ImageType != "" {
		// Validate has already rejected unknown types.
		format, _ = filehandler.ParseFormat(c.Resize.ImageType)
	}
	return resize.Options{
		Sizes:             c.Resize.Sizes,
		ResizedImagesPath: c.Resize.ResizedImagesPath,
		CacheControl:      c.Resize.CacheControl,
		DeleteOriginal:    c.Resize.DeleteOriginal,
		OutputFormat:      format,
		Quality:           c.Resize.Quality,
		ScratchDir:        c.Resize.ScratchDir,
		MaxConcurrency:    c.Resize.MaxConcurrency,
		Filter: resize.PathFilter{
			Include: c.Resize.IncludePaths,
			Exclude: c.Resize.ExcludePaths,
		},
	}
}

// splitPathList splits a comma-separated directory list, dropping blanks.
func splitPathList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
