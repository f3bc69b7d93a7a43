// Package filehandler provides the image side of the resize pipeline:
// format detection, EXIF orientation, fit-inside scaling and encoding.
//
// Decoding and scaling use disintegration/imaging (Lanczos). WebP and TIFF
// decoders come from golang.org/x/image; WebP encoding uses chai2010/webp.
// Orientation is read with evanoberholster/imagemeta so TIFF and WebP files
// are rotated as well as JPEG.
package filehandler

import (
	"fmt"
	"strings"
)

// Format is an output image encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
	FormatWebP Format = "webp"
)

// SupportedContentTypes maps the content types the resizer accepts to their format.
var SupportedContentTypes = map[string]Format{
	"image/jpeg": FormatJPEG,
	"image/png":  FormatPNG,
	"image/tiff": FormatTIFF,
	"image/webp": FormatWebP,
}

var formatExtensions = map[Format]string{
	FormatJPEG: ".jpg",
	FormatPNG:  ".png",
	FormatTIFF: ".tiff",
	FormatWebP: ".webp",
}

// ParseFormat accepts "jpeg", "jpg", "png", "tiff", "tif" or "webp", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported image format: %q", s)
}

// FormatFromContentType returns the format for a supported content type.
func FormatFromContentType(contentType string) (Format, bool) {
	f, ok := SupportedContentTypes[strings.ToLower(contentType)]
	return f, ok
}

// IsSupportedContentType reports whether the resizer can process contentType.
func IsSupportedContentType(contentType string) bool {
	_, ok := FormatFromContentType(contentType)
	return ok
}

// ContentType returns the MIME type written for f.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Extension returns the file extension used when converting to f.
func (f Format) Extension() string {
	return formatExtensions[f]
}

// FormatFromExtension returns the format for a file extension such as ".JPG".
func FormatFromExtension(ext string) (Format, bool) {
	f, err := ParseFormat(strings.TrimPrefix(ext, "."))
	return f, err == nil
}
