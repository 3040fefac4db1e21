// Package cvraster implements raster.Ops with OpenCV through gocv.
package cvraster

import (
	"errors"
	"image"
	"image/color"
	"math"
	"runtime"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/dudu/facealign/internal/raster"
)

// OpenCV implements raster.Ops. Images are converted to BGR Mats on entry
// and back to image.Image on exit. A conversion failure is logged and
// yields an empty image, as raster.Ops documents.
type OpenCV struct {
	Interpolation gocv.InterpolationFlags
	logger        *zap.Logger
}

// New creates an OpenCV backend with linear interpolation
func New(logger *zap.Logger) *OpenCV {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenCV{Interpolation: gocv.InterpolationLinear, logger: logger}
}

var _ raster.Ops = (*OpenCV)(nil)

// toMat copies img into a BGR Mat whose origin is img.Bounds().Min
func toMat(img image.Image) (gocv.Mat, error) {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), errors.New("empty image")
	}
	data := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			data = append(data, p[2], p[1], p[0])
		}
	}

	wrapped, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer wrapped.Close()
	// own the pixels on the C side, wrapped points into data
	m := wrapped.Clone()
	runtime.KeepAlive(data)
	return m, nil
}

func (o *OpenCV) empty(op string, err error) image.Image {
	o.logger.Warn("opencv conversion failed", zap.String("op", op), zap.Error(err))
	return image.NewNRGBA(image.Rect(0, 0, 0, 0))
}

func (o *OpenCV) toImage(op string, m gocv.Mat) image.Image {
	if m.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	img, err := m.ToImage()
	if err != nil {
		return o.empty(op, err)
	}
	return img
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func scalar(c color.Color) gocv.Scalar {
	v := rgba(c)
	// BGR channel order
	return gocv.NewScalar(float64(v.B), float64(v.G), float64(v.R), float64(v.A))
}

// Letterbox implements raster.Ops
func (o *OpenCV) Letterbox(img image.Image, size image.Point, pad color.Color) image.Image {
	src, err := toMat(img)
	if err != nil {
		return o.empty("letterbox", err)
	}
	defer src.Close()

	width, height := src.Cols(), src.Rows()
	scale := math.Min(float64(size.X)/float64(width), float64(size.Y)/float64(height))
	if scale > 1 {
		scale = 1
	}
	newWidth := max(int(float64(width)*scale), 1)
	newHeight := max(int(float64(height)*scale), 1)

	resized := src.Clone()
	defer resized.Close()
	if newWidth != width || newHeight != height {
		gocv.Resize(src, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationArea)
	}

	// Create padded image (letterbox), copy resized to top-left
	padded := gocv.NewMatWithSizeFromScalar(scalar(pad), size.Y, size.X, gocv.MatTypeCV8UC3)
	defer padded.Close()

	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()

	return o.toImage("letterbox", padded)
}

// Resize implements raster.Ops
func (o *OpenCV) Resize(img image.Image, width, height int) image.Image {
	src, err := toMat(img)
	if err != nil {
		return o.empty("resize", err)
	}
	defer src.Close()

	interp := o.Interpolation
	if width < src.Cols() && height < src.Rows() {
		interp = gocv.InterpolationArea
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, interp)
	return o.toImage("resize", dst)
}

// Crop implements raster.Ops
func (o *OpenCV) Crop(img image.Image, rect image.Rectangle) image.Image {
	src, err := toMat(img)
	if err != nil {
		return o.empty("crop", err)
	}
	defer src.Close()

	r := rect.Intersect(image.Rect(0, 0, src.Cols(), src.Rows()))
	if r.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}

	roi := src.Region(r)
	defer roi.Close()
	out := roi.Clone()
	defer out.Close()
	return o.toImage("crop", out)
}

// rotatedSize returns the canvas holding a w x h image rotated by rad.
// Near right angles the products carry rounding noise that must not add a pixel.
func rotatedSize(w, h, rad float64) (int, int) {
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	const eps = 1e-6
	return int(math.Ceil(w*cos + h*sin - eps)), int(math.Ceil(w*sin + h*cos - eps))
}

// Rotate implements raster.Ops
func (o *OpenCV) Rotate(img image.Image, degrees float64, bg color.Color) image.Image {
	src, err := toMat(img)
	if err != nil {
		return o.empty("rotate", err)
	}
	defer src.Close()

	w, h := float64(src.Cols()), float64(src.Rows())
	rad := degrees * math.Pi / 180
	newW, newH := rotatedSize(w, h, rad)

	// counter-clockwise on screen, pixel centers: source center (w-1)/2
	// lands on the canvas center (newW-1)/2
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := (w-1)/2, (h-1)/2
	dcx, dcy := float64(newW-1)/2, float64(newH-1)/2

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	m.SetDoubleAt(0, 0, cos)
	m.SetDoubleAt(0, 1, sin)
	m.SetDoubleAt(0, 2, dcx-cos*cx-sin*cy)
	m.SetDoubleAt(1, 0, -sin)
	m.SetDoubleAt(1, 1, cos)
	m.SetDoubleAt(1, 2, dcy+sin*cx-cos*cy)

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffineWithParams(src, &dst, m, image.Pt(newW, newH), o.Interpolation,
		gocv.BorderConstant, rgba(bg))
	return o.toImage("rotate", dst)
}

// WarpAffine implements raster.Ops
func (o *OpenCV) WarpAffine(img image.Image, m raster.Affine, size image.Point) image.Image {
	src, err := toMat(img)
	if err != nil {
		return o.empty("warp", err)
	}
	defer src.Close()

	M := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer M.Close()
	M.SetDoubleAt(0, 0, m[0])
	M.SetDoubleAt(0, 1, m[1])
	M.SetDoubleAt(0, 2, m[2])
	M.SetDoubleAt(1, 0, m[3])
	M.SetDoubleAt(1, 1, m[4])
	M.SetDoubleAt(1, 2, m[5])

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffineWithParams(src, &dst, M, size, o.Interpolation, gocv.BorderConstant, color.RGBA{})
	return o.toImage("warp", dst)
}

// Blur implements raster.Ops
func (o *OpenCV) Blur(img image.Image, rect image.Rectangle, sigma float64) image.Image {
	src, err := toMat(img)
	if err != nil {
		return o.empty("blur", err)
	}
	defer src.Close()

	r := rect.Intersect(image.Rect(0, 0, src.Cols(), src.Rows()))
	if r.Empty() || sigma <= 0 {
		return o.toImage("blur", src)
	}

	roi := src.Region(r)
	defer roi.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(roi, &blurred, image.Pt(0, 0), sigma, sigma, gocv.BorderDefault)
	blurred.CopyTo(&roi)

	return o.toImage("blur", src)
}
