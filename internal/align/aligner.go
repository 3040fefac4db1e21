package align

import (
	"errors"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"

	"github.com/dudu/facealign/internal/detector"
	"github.com/dudu/facealign/internal/raster"
)

// ErrEmptyCrop is returned when the canonical rectangle projects entirely
// outside the source image.
var ErrEmptyCrop = errors.New("aligned region lies outside the image")

// cropMargin pads the projected crop so the warp has neighbours to sample
const cropMargin = 2

// maxResizeFactor caps the intermediate resize at this many output sizes
const maxResizeFactor = 8

// Aligner produces fixed-size aligned faces from 5 landmarks
type Aligner struct {
	ops       raster.Ops
	size      int
	reference [5]detector.Point
	logger    *zap.Logger
}

// NewAligner creates an aligner for size x size output. The reference
// landmarks are scaled from the 112x112 layout. size <= 0 means 112.
func NewAligner(ops raster.Ops, size int, logger *zap.Logger) *Aligner {
	if size <= 0 {
		size = ReferenceSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	scale := float32(size) / ReferenceSize
	var ref [5]detector.Point
	for i, p := range ReferenceLandmarks {
		ref[i] = detector.Point{X: p.X * scale, Y: p.Y * scale}
	}

	return &Aligner{
		ops:       ops,
		size:      size,
		reference: ref,
		logger:    logger,
	}
}

// Size returns the output edge length
func (a *Aligner) Size() int {
	return a.size
}

// Reference returns the reference landmarks in output space
func (a *Aligner) Reference() [5]detector.Point {
	return a.reference
}

// Align estimates the transform from landmarks to the reference layout and
// renders the aligned face. The returned transform maps source pixels to
// aligned pixels.
func (a *Aligner) Align(img image.Image, landmarks detector.Landmarks) (image.Image, Transform, error) {
	t, err := Estimate(landmarks.Points(), a.reference)
	if err != nil {
		return nil, Transform{}, err
	}

	out, err := a.Warp(img, t)
	if err != nil {
		return nil, Transform{}, err
	}
	return out, t, nil
}

// Warp renders img through t into the size x size canonical rectangle.
//
// Rather than a single warp at arbitrary scale, the source is cropped to the
// region the canonical rectangle projects onto, resized by the transform's
// axis scale factors with the quality filter, and only the residual
// rotation and translation go through the affine warp.
func (a *Aligner) Warp(img image.Image, t Transform) (image.Image, error) {
	inv, err := t.Invert()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	crop := a.sourceRect(inv, raster.Size(img))
	if crop.Empty() {
		return nil, ErrEmptyCrop
	}
	region := a.ops.Crop(img, crop)

	// a similarity transform needs about size*sqrt(2) pixels per side, anything
	// far beyond that comes from a near singular fit
	sx, sy := t.ScaleFactors()
	cw, ch := crop.Dx(), crop.Dy()
	limit := float64(maxResizeFactor * a.size)
	if w, h := float64(cw)*sx, float64(ch)*sy; !(w <= limit && h <= limit) {
		return nil, fmt.Errorf("%w: resize to %.0fx%.0f exceeds %.0f", ErrDegenerate, w, h, limit)
	}
	rw := max(int(math.Round(float64(cw)*sx)), 1)
	rh := max(int(math.Round(float64(ch)*sy)), 1)

	resized := region
	if rw != cw || rh != ch {
		resized = a.ops.Resize(region, rw, rh)
	}

	// the resize rounds to whole pixels, use the factors it actually applied
	fx := float64(rw) / float64(cw)
	fy := float64(rh) / float64(ch)

	residual := scaling(1/fx, 1/fy).
		Then(translation(float64(crop.Min.X), float64(crop.Min.Y))).
		Then(t)

	a.logger.Debug("warp",
		zap.Stringer("crop", crop),
		zap.Float64("sx", sx),
		zap.Float64("sy", sy),
		zap.Float64("rotation", residual.Rotation()),
	)

	return a.ops.WarpAffine(resized, residual.Affine(), image.Pt(a.size, a.size)), nil
}

// sourceRect projects the canonical rectangle back into the source through
// inv and returns its bounding box, clamped to the image.
func (a *Aligner) sourceRect(inv Transform, bounds image.Point) image.Rectangle {
	s := float64(a.size)
	corners := [4][2]float64{{0, 0}, {s, 0}, {0, s}, {s, s}}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := inv.apply(c[0], c[1])
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	if !finite(minX) || !finite(minY) || !finite(maxX) || !finite(maxY) {
		return image.Rectangle{}
	}

	r := image.Rect(
		int(math.Floor(minX))-cropMargin,
		int(math.Floor(minY))-cropMargin,
		int(math.Ceil(maxX))+cropMargin,
		int(math.Ceil(maxY))+cropMargin,
	)
	return r.Intersect(image.Rectangle{Max: bounds})
}

// ToSource maps points in aligned space back into the source image through
// the transform returned by Align.
func (a *Aligner) ToSource(t Transform, points ...detector.Point) ([]detector.Point, error) {
	inv, err := t.Invert()
	if err != nil {
		return nil, err
	}
	out := make([]detector.Point, len(points))
	for i, p := range points {
		out[i] = inv.Apply(p)
	}
	return out, nil
}
