package filehandler

import (
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// EXIF orientation values (TIFF tag 0x0112).
const (
	OrientationNormal     = 1
	OrientationFlipH      = 2
	OrientationRotate180  = 3
	OrientationFlipV      = 4
	OrientationTranspose  = 5
	OrientationRotate90   = 6 // rotate 90 clockwise to display
	OrientationTransverse = 7
	OrientationRotate270  = 8 // rotate 270 clockwise to display
)

// ReadOrientation returns the EXIF orientation of the image at filePath, or
// OrientationNormal when the file carries no usable EXIF block.
//
// imagemeta only reads the metadata segment, so this is cheap even on large
// originals.
func ReadOrientation(filePath string) int {
	file, err := os.Open(filePath)
	if err != nil {
		log.Debug().Err(err).Str("path", filePath).Msg("Cannot open file for EXIF orientation")
		return OrientationNormal
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		log.Debug().Err(err).Str("path", filePath).Msg("No EXIF metadata, assuming normal orientation")
		return OrientationNormal
	}

	o := int(exifData.Orientation)
	if o < OrientationNormal || o > OrientationRotate270 {
		return OrientationNormal
	}
	return o
}

// ApplyOrientation transforms img so it displays upright for the given EXIF
// orientation.
func ApplyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case OrientationFlipH:
		return imaging.FlipH(img)
	case OrientationRotate180:
		return imaging.Rotate180(img)
	case OrientationFlipV:
		return imaging.FlipV(img)
	case OrientationTranspose:
		return imaging.Transpose(img)
	case OrientationRotate90:
		return imaging.Rotate270(img)
	case OrientationTransverse:
		return imaging.Transverse(img)
	case OrientationRotate270:
		return imaging.Rotate90(img)
	}
	return img
}
