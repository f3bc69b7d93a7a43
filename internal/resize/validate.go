package resize

import (
	"path"
	"strings"

	"github.com/fpang/resize-images/internal/filehandler"
	"github.com/fpang/resize-images/internal/storage"
)

// Custom metadata keys read and written by the pipeline.
const (
	// MetadataResized marks an object as an output of this pipeline.
	// Finalize events for such objects are skipped so uploads do not loop.
	MetadataResized = "resizedimage"

	// MetadataDownloadToken holds the public download token, if any.
	MetadataDownloadToken = "downloadtokens"
)

// Skip reasons returned by Validate.
const (
	SkipMissingContentType = "missing content type"
	SkipNotImage           = "not an image"
	SkipGzip               = "gzip-compressed content is not supported"
	SkipUnsupportedType    = "unsupported content type"
	SkipAlreadyResized     = "already resized"
	SkipPathNotIncluded    = "path not included"
	SkipPathExcluded       = "path excluded"
)

// Object describes the object that triggered an invocation.
type Object struct {
	Bucket string
	Key    string
	storage.ObjectMetadata
}

// PathFilter restricts processing to some directories. Entries are absolute
// directory prefixes such as "/users/*/pictures"; '*' matches one segment.
type PathFilter struct {
	Include []string
	Exclude []string
}

// Validate decides whether obj should be resized. Checks run in order and
// the first failing one supplies the reason.
func Validate(obj Object, filter PathFilter) (bool, string) {
	contentType := strings.ToLower(obj.ContentType)
	switch {
	case contentType == "":
		return false, SkipMissingContentType
	case !strings.HasPrefix(contentType, "image/"):
		return false, SkipNotImage
	case strings.EqualFold(obj.ContentEncoding, "gzip"):
		return false, SkipGzip
	case !filehandler.IsSupportedContentType(contentType):
		return false, SkipUnsupportedType
	case obj.Metadata[MetadataResized] == "true":
		return false, SkipAlreadyResized
	}

	dir := objectDir(obj.Key)
	if len(filter.Include) > 0 && !matchesAnyPrefix(filter.Include, dir) {
		return false, SkipPathNotIncluded
	}
	if matchesAnyPrefix(filter.Exclude, dir) {
		return false, SkipPathExcluded
	}
	return true, ""
}

// objectDir returns the absolute directory of key, "/" for top-level keys.
func objectDir(key string) string {
	return path.Clean("/" + path.Dir(key))
}

func matchesAnyPrefix(prefixes []string, dir string) bool {
	for _, p := range prefixes {
		if matchesPrefix(p, dir) {
			return true
		}
	}
	return false
}

func matchesPrefix(prefix, dir string) bool {
	ps := segments(path.Clean("/" + prefix))
	ds := segments(dir)
	if len(ds) < len(ps) {
		return false
	}
	for i, p := range ps {
		ok, err := path.Match(p, ds[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func segments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
