package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioConfig encapsulates the connection info for a MinIO (or other
// S3-compatible) endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// MinioStore implements ObjectStore with minio-go.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore builds a MinioStore from cfg.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials must be provided")
	}

	// minio-go wants host[:port]; the scheme comes from UseSSL.
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
		useSSL = true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		useSSL = false
	}

	client, err := minio.New(strings.TrimSuffix(endpoint, "/"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

var _ ObjectStore = (*MinioStore)(nil)

// Stat reads the object's headers and user metadata.
func (m *MinioStore) Stat(ctx context.Context, bucket, key string) (ObjectMetadata, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return ObjectMetadata{}, fmt.Errorf("minio stat %s: %w", key, ErrNotFound)
		}
		return ObjectMetadata{}, fmt.Errorf("minio stat %s: %w", key, err)
	}

	return ObjectMetadata{
		ContentType:        info.ContentType,
		ContentEncoding:    info.Metadata.Get("Content-Encoding"),
		ContentDisposition: info.Metadata.Get("Content-Disposition"),
		ContentLanguage:    info.Metadata.Get("Content-Language"),
		CacheControl:       info.Metadata.Get("Cache-Control"),
		Metadata:           lowerKeys(info.UserMetadata),
	}, nil
}

// Download writes the object to localPath.
func (m *MinioStore) Download(ctx context.Context, bucket, key, localPath string) error {
	log.Debug().Str("bucket", bucket).Str("key", key).Str("localPath", localPath).Msg("Downloading from MinIO")
	if err := m.client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return fmt.Errorf("minio get %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("minio get %s: %w", key, err)
	}
	return nil
}

// Upload writes the local file to key with the given headers and metadata.
func (m *MinioStore) Upload(ctx context.Context, bucket, key, localPath string, meta ObjectMetadata) error {
	_, err := m.client.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{
		ContentType:        meta.ContentType,
		ContentEncoding:    meta.ContentEncoding,
		ContentDisposition: meta.ContentDisposition,
		ContentLanguage:    meta.ContentLanguage,
		CacheControl:       meta.CacheControl,
		UserMetadata:       meta.Metadata,
	})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", key, err)
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Str("contentType", meta.ContentType).Msg("Uploaded to MinIO")
	return nil
}

// Delete removes the object.
func (m *MinioStore) Delete(ctx context.Context, bucket, key string) error {
	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove %s: %w", key, err)
	}
	return nil
}

func isMinioNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// lowerKeys normalises user-metadata keys. S3 already returns them lowercase;
// minio-go returns them in canonical header form.
func lowerKeys(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
