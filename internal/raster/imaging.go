package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Imaging implements Ops in pure Go on top of disintegration/imaging and
// golang.org/x/image/draw.
type Imaging struct {
	// Filter is the resampling filter for Resize and Letterbox.
	// The zero value resamples with nearest neighbor.
	Filter imaging.ResampleFilter
	// Interpolator is used by WarpAffine, draw.BiLinear when nil.
	Interpolator draw.Interpolator
}

// NewImaging returns an Imaging with quality defaults
func NewImaging() *Imaging {
	return &Imaging{Filter: imaging.Lanczos, Interpolator: draw.BiLinear}
}

func (o *Imaging) interpolator() draw.Interpolator {
	if o.Interpolator == nil {
		return draw.BiLinear
	}
	return o.Interpolator
}

// Letterbox implements Ops
func (o *Imaging) Letterbox(img image.Image, size image.Point, pad color.Color) image.Image {
	src := Size(img)
	scale := math.Min(float64(size.X)/float64(src.X), float64(size.Y)/float64(src.Y))
	if scale > 1 {
		scale = 1
	}

	newWidth := int(float64(src.X) * scale)
	newHeight := int(float64(src.Y) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	var resized image.Image = img
	if newWidth != src.X || newHeight != src.Y {
		resized = imaging.Resize(img, newWidth, newHeight, o.Filter)
	}

	padded := imaging.New(size.X, size.Y, pad)
	return imaging.Paste(padded, resized, image.Pt(0, 0))
}

// Resize implements Ops
func (o *Imaging) Resize(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, o.Filter)
}

// Crop implements Ops. rect is relative to img.Bounds().Min.
func (o *Imaging) Crop(img image.Image, rect image.Rectangle) image.Image {
	b := img.Bounds()
	return imaging.Crop(img, rect.Add(b.Min).Intersect(b))
}

// Rotate implements Ops
func (o *Imaging) Rotate(img image.Image, degrees float64, bg color.Color) image.Image {
	return imaging.Rotate(img, degrees, bg)
}

// WarpAffine implements Ops
func (o *Imaging) WarpAffine(img image.Image, m Affine, size image.Point) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	b := img.Bounds()

	// draw works in absolute source coordinates, m expects them relative to Min
	s2d := f64.Aff3{
		m[0], m[1], m[2] - m[0]*float64(b.Min.X) - m[1]*float64(b.Min.Y),
		m[3], m[4], m[5] - m[3]*float64(b.Min.X) - m[4]*float64(b.Min.Y),
	}
	o.interpolator().Transform(dst, s2d, img, b, draw.Src, nil)
	return dst
}

// Blur implements Ops
func (o *Imaging) Blur(img image.Image, rect image.Rectangle, sigma float64) image.Image {
	out := imaging.Clone(img)
	r := rect.Intersect(out.Bounds())
	if r.Empty() || sigma <= 0 {
		return out
	}
	blurred := imaging.Blur(imaging.Crop(out, r), sigma)
	return imaging.Paste(out, blurred, r.Min)
}
