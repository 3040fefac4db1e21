// Package imageio loads images from disk with EXIF orientation applied and
// writes results back.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// ErrUnsupportedFormat is returned for files no registered decoder accepts
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Meta describes a decoded image
type Meta struct {
	Format      string
	Orientation int // EXIF orientation 1-8, 1 when absent
	Size        image.Point
}

// Load reads and decodes the image at path, rotating it upright according
// to its EXIF orientation.
func Load(path string) (image.Image, Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	img, meta, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Meta{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, meta, nil
}

// Decode decodes an image from r and applies its EXIF orientation
func Decode(r io.ReadSeeker) (image.Image, Meta, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, Meta{}, ErrUnsupportedFormat
		}
		return nil, Meta{}, fmt.Errorf("failed to decode image: %w", err)
	}

	meta := Meta{Format: format, Orientation: 1}
	if _, err := r.Seek(0, io.SeekStart); err == nil {
		meta.Orientation = readOrientation(r)
	}

	img = Orient(img, meta.Orientation)
	meta.Size = img.Bounds().Size()
	return img, meta, nil
}

// readOrientation returns the EXIF orientation tag, 1 if it is missing or invalid
func readOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// Orient transforms img so that an image stored with the given EXIF
// orientation is displayed upright.
func Orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// Save writes img to path, the format is chosen by the file extension
func Save(path string, img image.Image) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// Encode writes img to w in the format named by ext (".png", ".jpg", ...)
func Encode(w io.Writer, img image.Image, ext string) error {
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return imaging.Encode(w, img, format, imaging.JPEGQuality(95))
}
