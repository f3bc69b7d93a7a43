package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// projectTag is the URL-encoded S3 object tagging string for cost allocation.
const projectTag = "Project=resize-images"

// ProjectTagging returns a pointer to the URL-encoded S3 object tagging string.
// Set on every PutObjectInput written by this project.
func ProjectTagging() *string {
	t := projectTag
	return &t
}

// S3Store implements ObjectStore on Amazon S3 (or an S3-compatible endpoint)
// using the SDK transfer manager for streaming downloads and uploads.
type S3Store struct {
	client     *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
}

// NewS3Store wraps an S3 client.
func NewS3Store(client *s3.Client) *S3Store {
	return &S3Store{
		client:     client,
		downloader: manager.NewDownloader(client),
		uploader:   manager.NewUploader(client),
	}
}

var _ ObjectStore = (*S3Store)(nil)

// Stat reads the object's headers and user metadata with HeadObject.
func (s *S3Store) Stat(ctx context.Context, bucket, key string) (ObjectMetadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		if isS3NotFound(err) {
			return ObjectMetadata{}, fmt.Errorf("S3 HeadObject %s: %w", key, ErrNotFound)
		}
		return ObjectMetadata{}, fmt.Errorf("S3 HeadObject %s: %w", key, err)
	}

	return ObjectMetadata{
		ContentType:        aws.ToString(out.ContentType),
		ContentEncoding:    aws.ToString(out.ContentEncoding),
		ContentDisposition: aws.ToString(out.ContentDisposition),
		ContentLanguage:    aws.ToString(out.ContentLanguage),
		CacheControl:       aws.ToString(out.CacheControl),
		Metadata:           lowerKeys(out.Metadata),
	}, nil
}

// Download streams the object into localPath. The parent directory must exist.
func (s *S3Store) Download(ctx context.Context, bucket, key, localPath string) error {
	log.Debug().Str("bucket", bucket).Str("key", key).Str("localPath", localPath).Msg("Downloading from S3")

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	n, err := fetchAndClose(f, func(w io.WriterAt) (int64, error) {
		return s.downloader.Download(ctx, w, &s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &key,
		})
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("S3 GetObject %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("S3 GetObject %s: %w", key, err)
	}

	log.Debug().Str("key", key).Int64("bytes", n).Msg("S3 download complete")
	return nil
}

// Upload writes the local file to key with the given headers and metadata.
func (s *S3Store) Upload(ctx context.Context, bucket, key, localPath string, meta ObjectMetadata) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket:   &bucket,
		Key:      &key,
		Body:     f,
		Metadata: meta.Metadata,
		Tagging:  ProjectTagging(),
	}
	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}
	if meta.ContentEncoding != "" {
		input.ContentEncoding = aws.String(meta.ContentEncoding)
	}
	if meta.ContentDisposition != "" {
		input.ContentDisposition = aws.String(meta.ContentDisposition)
	}
	if meta.ContentLanguage != "" {
		input.ContentLanguage = aws.String(meta.ContentLanguage)
	}
	if meta.CacheControl != "" {
		input.CacheControl = aws.String(meta.CacheControl)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Str("contentType", meta.ContentType).Msg("Uploaded to S3")
	return nil
}

// Delete removes the object. Deleting a missing key is not an error in S3.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("S3 DeleteObject %s: %w", key, err)
	}
	return nil
}

type writerAtCloser interface {
	io.WriterAt
	io.Closer
}

// fetchAndClose runs fetch into w and always closes w. A close failure is
// reported when fetch itself succeeded, since the file may be incomplete.
func fetchAndClose(w writerAtCloser, fetch func(io.WriterAt) (int64, error)) (int64, error) {
	n, err := fetch(w)
	if closeErr := w.Close(); err == nil && closeErr != nil {
		return n, fmt.Errorf("close downloaded file: %w", closeErr)
	}
	return n, err
}

func isS3NotFound(err error) bool {
	var nf *s3types.NotFound
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
