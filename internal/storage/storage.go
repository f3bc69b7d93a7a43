// Package storage abstracts the object-storage operations the resize pipeline
// needs: look up an object's metadata, download it to a local path, upload a
// local file with metadata, and delete an object.
//
// Two implementations are provided: S3Store (aws-sdk-go-v2, used by the
// Lambda) and MinioStore (minio-go, for S3-compatible stores in local runs).
package storage

import (
	"context"
	"errors"
	"maps"
)

// ErrNotFound is returned by Stat and Download when the object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectMetadata is the subset of object headers the pipeline reads and
// writes. Custom metadata keys are always lowercase.
type ObjectMetadata struct {
	ContentType        string
	ContentEncoding    string
	ContentDisposition string
	ContentLanguage    string
	CacheControl       string
	Metadata           map[string]string
}

// Clone returns a copy that shares no map with m.
func (m ObjectMetadata) Clone() ObjectMetadata {
	out := m
	out.Metadata = maps.Clone(m.Metadata)
	return out
}

// ObjectStore captures the operations the resize pipeline performs against
// a bucket.
type ObjectStore interface {
	Stat(ctx context.Context, bucket, key string) (ObjectMetadata, error)
	Download(ctx context.Context, bucket, key, localPath string) error
	Upload(ctx context.Context, bucket, key, localPath string, meta ObjectMetadata) error
	Delete(ctx context.Context, bucket, key string) error
}
