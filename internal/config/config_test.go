package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/fpang/resize-images/internal/filehandler"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if want := []string{"200x200"}; !reflect.DeepEqual(cfg.Resize.Sizes, want) {
		t.Errorf("Sizes = %q, want %q", cfg.Resize.Sizes, want)
	}
	if cfg.Resize.Quality != filehandler.DefaultQuality {
		t.Errorf("Quality = %d, want %d", cfg.Resize.Quality, filehandler.DefaultQuality)
	}
	if cfg.Resize.DeleteOriginal {
		t.Error("DeleteOriginal = true, want false")
	}
	if cfg.Storage.Backend != BackendS3 {
		t.Errorf("Backend = %q, want %q", cfg.Storage.Backend, BackendS3)
	}
	if cfg.MetricsNamespace != "ResizeImages" {
		t.Errorf("MetricsNamespace = %q, want ResizeImages", cfg.MetricsNamespace)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMG_SIZES", "100,100;auto,300")
	t.Setenv("RESIZED_IMAGES_PATH", "/thumbs/")
	t.Setenv("CACHE_CONTROL_HEADER", "public, max-age=3600")
	t.Setenv("DELETE_ORIGINAL_FILE", "true")
	t.Setenv("IMAGE_TYPE", "WebP")
	t.Setenv("IMAGE_QUALITY", "75")
	t.Setenv("INCLUDE_PATH_LIST", "/users/*/pictures, /uploads")
	t.Setenv("EXCLUDE_PATH_LIST", "/users/*/pictures/private")
	t.Setenv("MAX_CONCURRENCY", "4")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	r := cfg.Resize
	if want := []string{"100,100", "auto,300"}; !reflect.DeepEqual(r.Sizes, want) {
		t.Errorf("Sizes = %q, want %q", r.Sizes, want)
	}
	if r.ResizedImagesPath != "thumbs" {
		t.Errorf("ResizedImagesPath = %q, want thumbs", r.ResizedImagesPath)
	}
	if !r.DeleteOriginal {
		t.Error("DeleteOriginal = false, want true")
	}
	if want := []string{"/users/*/pictures", "/uploads"}; !reflect.DeepEqual(r.IncludePaths, want) {
		t.Errorf("IncludePaths = %q, want %q", r.IncludePaths, want)
	}

	opts := cfg.ProcessorOptions()
	if opts.OutputFormat != filehandler.FormatWebP {
		t.Errorf("OutputFormat = %q, want webp", opts.OutputFormat)
	}
	if opts.Quality != 75 || opts.MaxConcurrency != 4 {
		t.Errorf("Quality/MaxConcurrency = %d/%d, want 75/4", opts.Quality, opts.MaxConcurrency)
	}
	if opts.CacheControl != "public, max-age=3600" {
		t.Errorf("CacheControl = %q", opts.CacheControl)
	}
	if !reflect.DeepEqual(opts.Filter.Exclude, []string{"/users/*/pictures/private"}) {
		t.Errorf("Filter.Exclude = %q", opts.Filter.Exclude)
	}
}

func TestLoadMinio(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
	t.Setenv("MINIO_USE_SSL", "false")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if cfg.Storage.Backend != BackendMinio {
		t.Errorf("Backend = %q, want minio", cfg.Storage.Backend)
	}
	m := cfg.Storage.Minio
	if m.Endpoint != "localhost:9000" || m.AccessKey != "minio" || m.UseSSL {
		t.Errorf("Minio = %+v", m)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Resize:  ResizeConfig{Sizes: []string{"200x200"}, Quality: 90},
			Storage: StorageConfig{Backend: BackendS3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no sizes", func(c *Config) { c.Resize.Sizes = nil }, "IMG_SIZES"},
		{"bad image type", func(c *Config) { c.Resize.ImageType = "gif" }, "IMAGE_TYPE"},
		{"quality zero", func(c *Config) { c.Resize.Quality = 0 }, "IMAGE_QUALITY"},
		{"quality too high", func(c *Config) { c.Resize.Quality = 101 }, "IMAGE_QUALITY"},
		{"negative concurrency", func(c *Config) { c.Resize.MaxConcurrency = -1 }, "MAX_CONCURRENCY"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "gcs" }, "STORAGE_BACKEND"},
		{"minio without endpoint", func(c *Config) { c.Storage.Backend = BackendMinio }, "MINIO_ENDPOINT"},
		{"malformed size is not fatal", func(c *Config) { c.Resize.Sizes = []string{"bad"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestInvalidSizes(t *testing.T) {
	cfg := &Config{Resize: ResizeConfig{Sizes: []string{"200x200", "bad", "auto,100", "x"}}}
	if got, want := cfg.InvalidSizes(), []string{"bad", "x"}; !reflect.DeepEqual(got, want) {
		t.Errorf("InvalidSizes() = %q, want %q", got, want)
	}
}

func TestSplitPathList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"/a", []string{"/a"}},
		{" /a , ,/b/*/c ", []string{"/a", "/b/*/c"}},
	}
	for _, tt := range tests {
		if got := splitPathList(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitPathList(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
