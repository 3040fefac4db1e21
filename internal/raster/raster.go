// Package raster holds the 2-D image operations the detector and aligner
// consume. Every operation returns a new image and leaves its input untouched.
package raster

import (
	"image"
	"image/color"
)

// Affine maps source coordinates to destination coordinates:
// x' = M[0]*x + M[1]*y + M[2], y' = M[3]*x + M[4]*y + M[5].
type Affine [6]float64

// Ops is the raster library boundary. An implementation that cannot convert
// its input returns an empty image instead of failing; callers check sizes.
type Ops interface {
	// Letterbox fits img into size keeping its aspect ratio, never upscaling,
	// anchored at the top-left corner and padded with pad.
	Letterbox(img image.Image, size image.Point, pad color.Color) image.Image
	// Resize scales img to exactly width x height
	Resize(img image.Image, width, height int) image.Image
	// Crop returns the part of img inside rect, clamped to the image bounds.
	// The result's bounds start at (0,0).
	Crop(img image.Image, rect image.Rectangle) image.Image
	// Rotate rotates img counter-clockwise by degrees around its center,
	// growing the canvas to fit and filling uncovered pixels with bg.
	Rotate(img image.Image, degrees float64, bg color.Color) image.Image
	// WarpAffine renders img through m into a size canvas anchored at (0,0).
	WarpAffine(img image.Image, m Affine, size image.Point) image.Image
	// Blur applies a gaussian blur with the given sigma inside rect only.
	Blur(img image.Image, rect image.Rectangle, sigma float64) image.Image
}

// Size returns the width and height of img
func Size(img image.Image) image.Point {
	return img.Bounds().Size()
}
