package resize

import "errors"

// Error categories. Each wraps the underlying cause, so callers can test
// both with errors.Is.
var (
	// ErrDownload is fatal to the invocation: no size is attempted.
	ErrDownload = errors.New("download failed")

	// ErrMalformedSize, ErrResize and ErrUpload fail a single size only.
	ErrMalformedSize = errors.New("malformed size")
	ErrResize        = errors.New("resize failed")
	ErrUpload        = errors.New("upload failed")
)
