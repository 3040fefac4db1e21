package align

import (
	"errors"
	"math"

	"github.com/dudu/facealign/internal/detector"
	"github.com/dudu/facealign/internal/raster"
)

// ErrSingular is returned when inverting a transform without an inverse.
var ErrSingular = errors.New("transform is not invertible")

// Transform is a 2x3 affine matrix:
// x' = A*x + B*y + Tx, y' = C*x + D*y + Ty.
type Transform struct {
	A, B, Tx float64
	C, D, Ty float64
}

// Identity is the identity transform
var Identity = Transform{A: 1, D: 1}

// Apply maps p through t
func (t Transform) Apply(p detector.Point) detector.Point {
	x, y := t.apply(float64(p.X), float64(p.Y))
	return detector.Point{X: float32(x), Y: float32(y)}
}

func (t Transform) apply(x, y float64) (float64, float64) {
	return t.A*x + t.B*y + t.Tx, t.C*x + t.D*y + t.Ty
}

// Then returns the transform applying t first and u second.
func (t Transform) Then(u Transform) Transform {
	return Transform{
		A:  u.A*t.A + u.B*t.C,
		B:  u.A*t.B + u.B*t.D,
		Tx: u.A*t.Tx + u.B*t.Ty + u.Tx,
		C:  u.C*t.A + u.D*t.C,
		D:  u.C*t.B + u.D*t.D,
		Ty: u.C*t.Tx + u.D*t.Ty + u.Ty,
	}
}

// Invert returns the inverse transform
func (t Transform) Invert() (Transform, error) {
	det := t.A*t.D - t.B*t.C
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Transform{}, ErrSingular
	}
	a := t.D / det
	b := -t.B / det
	c := -t.C / det
	d := t.A / det
	return Transform{
		A: a, B: b, Tx: -(a*t.Tx + b*t.Ty),
		C: c, D: d, Ty: -(c*t.Tx + d*t.Ty),
	}, nil
}

// ScaleFactors returns how much t stretches the source x and y axes.
func (t Transform) ScaleFactors() (sx, sy float64) {
	return math.Hypot(t.A, t.C), math.Hypot(t.B, t.D)
}

// Rotation returns the rotation angle of the x axis in degrees.
func (t Transform) Rotation() float64 {
	return math.Atan2(t.C, t.A) * 180 / math.Pi
}

// Affine converts t to the raster boundary representation
func (t Transform) Affine() raster.Affine {
	return raster.Affine{t.A, t.B, t.Tx, t.C, t.D, t.Ty}
}

// scaling returns a pure axis scale
func scaling(sx, sy float64) Transform {
	return Transform{A: sx, D: sy}
}

func translation(dx, dy float64) Transform {
	return Transform{A: 1, D: 1, Tx: dx, Ty: dy}
}
