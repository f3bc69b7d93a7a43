package filehandler

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	// Registers the WebP decoder with image.Decode (imaging registers JPEG, PNG, TIFF).
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG/WebP quality used when ResizeOptions.Quality is unset.
const DefaultQuality = 90

// ResizeOptions describes one scaled output. A zero Width or Height leaves
// that axis unconstrained.
type ResizeOptions struct {
	Width   int
	Height  int
	Format  Format
	Quality int
}

// ResizeInfo reports what ResizeFile did.
type ResizeInfo struct {
	OrigWidth   int
	OrigHeight  int
	Width       int
	Height      int
	Orientation int
	Resized     bool
}

// ResizeFile decodes src, rotates it upright according to its EXIF
// orientation, scales it to fit inside Width x Height without enlarging, and
// encodes it to dst in opts.Format. dst is written completely before
// ResizeFile returns.
func ResizeFile(src, dst string, opts ResizeOptions) (ResizeInfo, error) {
	if opts.Width < 0 || opts.Height < 0 {
		return ResizeInfo{}, fmt.Errorf("invalid bounds %dx%d", opts.Width, opts.Height)
	}
	if opts.Format == "" {
		return ResizeInfo{}, fmt.Errorf("output format is required")
	}

	img, err := imaging.Open(src)
	if err != nil {
		return ResizeInfo{}, fmt.Errorf("failed to decode image: %w", err)
	}

	info := ResizeInfo{Orientation: ReadOrientation(src)}
	img = ApplyOrientation(img, info.Orientation)

	bounds := img.Bounds()
	info.OrigWidth, info.OrigHeight = bounds.Dx(), bounds.Dy()
	info.Width, info.Height = FitInside(info.OrigWidth, info.OrigHeight, opts.Width, opts.Height)

	if info.Width != info.OrigWidth || info.Height != info.OrigHeight {
		img = imaging.Resize(img, info.Width, info.Height, imaging.Lanczos)
		info.Resized = true
	}

	if err := writeImage(dst, img, opts.Format, opts.Quality); err != nil {
		return ResizeInfo{}, err
	}

	log.Debug().
		Str("src", filepath.Base(src)).
		Str("dst", filepath.Base(dst)).
		Int("orig_width", info.OrigWidth).
		Int("orig_height", info.OrigHeight).
		Int("new_width", info.Width).
		Int("new_height", info.Height).
		Int("orientation", info.Orientation).
		Msg("Image resized")

	return info, nil
}

// FitInside returns the largest dimensions that fit inside maxWidth x
// maxHeight while preserving the aspect ratio of width x height. Images that
// already fit are returned unchanged. A zero bound leaves that axis free.
func FitInside(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}

	scale := 1.0
	if maxWidth > 0 && width > maxWidth {
		scale = float64(maxWidth) / float64(width)
	}
	if maxHeight > 0 && height > maxHeight {
		if s := float64(maxHeight) / float64(height); s < scale {
			scale = s
		}
	}
	if scale >= 1 {
		return width, height
	}

	newWidth := int(float64(width)*scale + 0.5)
	newHeight := int(float64(height)*scale + 0.5)
	// The constrained axis lands exactly on its bound.
	if maxWidth > 0 && newWidth > maxWidth {
		newWidth = maxWidth
	}
	if maxHeight > 0 && newHeight > maxHeight {
		newHeight = maxHeight
	}
	return max(newWidth, 1), max(newHeight, 1)
}

func writeImage(dst string, img image.Image, format Format, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if err := encode(f, img, format, quality); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func encode(w io.Writer, img image.Image, format Format, quality int) error {
	var err error
	switch format {
	case FormatJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		err = imaging.Encode(w, img, imaging.PNG)
	case FormatTIFF:
		err = imaging.Encode(w, img, imaging.TIFF)
	case FormatWebP:
		err = webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	default:
		return fmt.Errorf("unsupported output format: %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}
