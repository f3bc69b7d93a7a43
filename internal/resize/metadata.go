package resize

import (
	"github.com/fpang/resize-images/internal/storage"
)

// BuildMetadata returns the upload metadata for one resized output. The
// result shares no map with orig, so concurrent tasks cannot alias each
// other's metadata.
//
// Disposition, encoding and language are carried over. Content type is the
// output's. Custom metadata is copied and marked as resized. cacheControl
// overrides the original's Cache-Control when non-empty. An existing
// download token is replaced by newToken() so each output can be revoked
// independently.
func BuildMetadata(orig storage.ObjectMetadata, contentType, cacheControl string, newToken func() string) storage.ObjectMetadata {
	meta := orig.Clone()
	meta.ContentType = contentType
	if meta.Metadata == nil {
		meta.Metadata = make(map[string]string, 1)
	}
	meta.Metadata[MetadataResized] = "true"

	if cacheControl != "" {
		meta.CacheControl = cacheControl
	}
	if _, ok := meta.Metadata[MetadataDownloadToken]; ok {
		meta.Metadata[MetadataDownloadToken] = newToken()
	}
	return meta
}
