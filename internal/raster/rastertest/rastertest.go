// Package rastertest holds the behaviour every raster.Ops implementation
// shares, run by each backend's tests.
package rastertest

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/facealign/internal/raster"
)

var (
	black = color.NRGBA{0, 0, 0, 255}
	white = color.NRGBA{255, 255, 255, 255}
	blue  = color.NRGBA{0, 0, 255, 255}
)

// Gradient returns an image whose pixels encode their own coordinates
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 2), G: uint8(y * 2), B: 100, A: 255})
		}
	}
	return img
}

func filled(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// At returns the pixel at (x,y) as NRGBA
func At(img image.Image, x, y int) color.NRGBA {
	b := img.Bounds()
	return color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
}

// Run checks ops against the raster.Ops contract
func Run(t *testing.T, ops raster.Ops) {
	t.Run("letterbox top left", func(t *testing.T) {
		out := ops.Letterbox(filled(128, 64, white), image.Pt(64, 64), color.Black)
		require.Equal(t, image.Pt(64, 64), raster.Size(out))

		// 128x64 halved is 64x32 at the top, black below
		assert.Equal(t, white, At(out, 10, 10))
		assert.Equal(t, white, At(out, 63, 31))
		assert.Equal(t, black, At(out, 10, 32))
		assert.Equal(t, black, At(out, 63, 63))

		out = ops.Letterbox(filled(128, 64, white), image.Pt(64, 64), blue)
		assert.Equal(t, blue, At(out, 10, 40))
	})

	t.Run("letterbox never upscales", func(t *testing.T) {
		src := Gradient(20, 10)
		out := ops.Letterbox(src, image.Pt(32, 32), color.Black)
		require.Equal(t, image.Pt(32, 32), raster.Size(out))
		assert.Equal(t, src.NRGBAAt(19, 9), At(out, 19, 9))
		assert.Equal(t, src.NRGBAAt(5, 3), At(out, 5, 3))
		assert.Equal(t, black, At(out, 20, 0))
		assert.Equal(t, black, At(out, 0, 10))
	})

	t.Run("crop clamped", func(t *testing.T) {
		src := Gradient(40, 30)
		out := ops.Crop(src, image.Rect(-5, 20, 10, 50))
		require.Equal(t, image.Pt(10, 10), raster.Size(out))
		assert.Equal(t, image.Pt(0, 0), out.Bounds().Min)
		assert.Equal(t, src.NRGBAAt(0, 20), At(out, 0, 0))
		assert.Equal(t, src.NRGBAAt(9, 29), At(out, 9, 9))

		// relative to a sub image origin
		sub := src.SubImage(image.Rect(10, 10, 40, 30))
		out = ops.Crop(sub, image.Rect(0, 0, 5, 5))
		require.Equal(t, image.Pt(5, 5), raster.Size(out))
		assert.Equal(t, src.NRGBAAt(10, 10), At(out, 0, 0))

		assert.True(t, raster.Size(ops.Crop(src, image.Rect(50, 50, 60, 60))).Eq(image.Point{}))
	})

	t.Run("warp identity", func(t *testing.T) {
		src := Gradient(48, 40)
		out := ops.WarpAffine(src, raster.Affine{1, 0, 0, 0, 1, 0}, image.Pt(32, 32))
		require.Equal(t, image.Pt(32, 32), raster.Size(out))
		for _, p := range []image.Point{{0, 0}, {13, 7}, {31, 31}} {
			assert.Equal(t, src.NRGBAAt(p.X, p.Y), At(out, p.X, p.Y), "pixel %v", p)
		}
	})

	t.Run("warp translation", func(t *testing.T) {
		src := Gradient(48, 40)

		// dst(x,y) = src(x+5, y+3)
		out := ops.WarpAffine(src, raster.Affine{1, 0, -5, 0, 1, -3}, image.Pt(16, 16))
		assert.Equal(t, src.NRGBAAt(5, 3), At(out, 0, 0))
		assert.Equal(t, src.NRGBAAt(15, 13), At(out, 10, 10))

		// same mapping for a sub image, coordinates relative to its origin
		sub := src.SubImage(image.Rect(5, 3, 48, 40))
		out = ops.WarpAffine(sub, raster.Affine{1, 0, 0, 0, 1, 0}, image.Pt(16, 16))
		assert.Equal(t, src.NRGBAAt(5, 3), At(out, 0, 0))
		assert.Equal(t, src.NRGBAAt(15, 13), At(out, 10, 10))
	})

	t.Run("blur region only", func(t *testing.T) {
		src := filled(40, 40, black)
		// white square inside the blurred region
		fillRect(src, image.Rect(16, 16, 24, 24), white)

		out := ops.Blur(src, image.Rect(10, 10, 30, 30), 3)
		require.Equal(t, image.Pt(40, 40), raster.Size(out))

		assert.Less(t, At(out, 20, 20).R, uint8(255), "inside is blurred")
		assert.Greater(t, At(out, 14, 20).R, uint8(0), "blur spreads within the region")
		assert.Equal(t, black, At(out, 5, 5), "outside untouched")
		assert.Equal(t, white, src.NRGBAAt(20, 20), "input untouched")
	})

	t.Run("resize", func(t *testing.T) {
		out := ops.Resize(Gradient(40, 20), 20, 10)
		assert.Equal(t, image.Pt(20, 10), raster.Size(out))
		out = ops.Resize(Gradient(10, 10), 25, 30)
		assert.Equal(t, image.Pt(25, 30), raster.Size(out))
	})

	t.Run("rotate right angle", func(t *testing.T) {
		src := filled(21, 11, black)
		src.SetNRGBA(10, 5, white)

		out := ops.Rotate(src, 90, color.Black)
		require.Equal(t, image.Pt(11, 21), raster.Size(out))
		// the center pixel stays the center pixel
		assert.Equal(t, white, At(out, 5, 10))
	})

	t.Run("rotate keeps center", func(t *testing.T) {
		src := filled(21, 11, black)
		fillRect(src, image.Rect(8, 3, 13, 8), white)

		out := ops.Rotate(src, 30, blue)
		size := raster.Size(out)
		assert.InDelta(t, 24, size.X, 1)
		assert.InDelta(t, 21, size.Y, 1)

		for _, p := range []image.Point{{(size.X - 1) / 2, (size.Y - 1) / 2}, {size.X / 2, size.Y / 2}} {
			assert.Greater(t, At(out, p.X, p.Y).R, uint8(250), "center %v", p)
		}
		assert.Equal(t, blue, At(out, 0, 0), "uncovered corner takes the background")
	})
}
