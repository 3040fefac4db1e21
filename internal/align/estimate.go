package align

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dudu/facealign/internal/detector"
)

// ErrDegenerate is returned when the landmarks do not determine a transform,
// e.g. because they are collinear or coincident.
var ErrDegenerate = errors.New("degenerate landmarks, alignment matrix is singular")

// maxCondition bounds the condition number of the least squares system built
// from normalized landmarks. Real faces, profiles included, stay below 10;
// collinear float32 landmarks land around 1e5 and above from rounding alone.
const maxCondition = 1e4

// ArcFace reference landmarks for 112x112 aligned face
var ReferenceLandmarks = [5]detector.Point{
	{X: 38.2946, Y: 51.6963}, // left eye
	{X: 73.5318, Y: 51.5014}, // right eye
	{X: 56.0252, Y: 71.7366}, // nose
	{X: 41.5493, Y: 92.3655}, // left mouth
	{X: 70.7299, Y: 92.2041}, // right mouth
}

// ReferenceSize is the canonical frame the reference landmarks live in
const ReferenceSize = 112

// Estimate solves for the affine transform mapping observed onto reference in
// the least squares sense. The observed points are first centred and scaled
// to unit RMS distance, so the conditioning check does not depend on where
// or how large the face is. Each point pair contributes two rows of the system
//
//	[x y 1 0 0 0] [A B Tx C D Ty]^T = x'
//	[0 0 0 x y 1] [A B Tx C D Ty]^T = y'
func Estimate(observed, reference [5]detector.Point) (Transform, error) {
	norm, err := normalization(observed)
	if err != nil {
		return Transform{}, err
	}

	const cols = 6
	rows := len(observed) * 2

	a := mat.NewDense(rows, cols, nil)
	b := mat.NewVecDense(rows, nil)

	for p := range observed {
		x, y := norm.apply(float64(observed[p].X), float64(observed[p].Y))

		row := p * 2
		a.Set(row, 0, x)
		a.Set(row, 1, y)
		a.Set(row, 2, 1)
		b.SetVec(row, float64(reference[p].X))
		row++
		a.Set(row, 3, x)
		a.Set(row, 4, y)
		a.Set(row, 5, 1)
		b.SetVec(row, float64(reference[p].Y))
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return Transform{}, fmt.Errorf("%w: factorization failed", ErrDegenerate)
	}
	if cond := svd.Cond(); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > maxCondition {
		return Transform{}, fmt.Errorf("%w: condition number %g", ErrDegenerate, cond)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return Transform{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	solved := Transform{
		A: x.AtVec(0), B: x.AtVec(1), Tx: x.AtVec(2),
		C: x.AtVec(3), D: x.AtVec(4), Ty: x.AtVec(5),
	}
	return norm.Then(solved), nil
}

// normalization returns the transform moving the centroid of pts to the
// origin and scaling their RMS distance from it to 1.
func normalization(pts [5]detector.Point) (Transform, error) {
	var cx, cy float64
	for i, p := range pts {
		x, y := float64(p.X), float64(p.Y)
		if !finite(x) || !finite(y) {
			return Transform{}, fmt.Errorf("%w: landmark %d is not finite", ErrDegenerate, i)
		}
		cx += x
		cy += y
	}
	n := float64(len(pts))
	cx /= n
	cy /= n

	var sum float64
	for _, p := range pts {
		dx, dy := float64(p.X)-cx, float64(p.Y)-cy
		sum += dx*dx + dy*dy
	}
	rms := math.Sqrt(sum / n)
	if rms < 1e-6 {
		return Transform{}, fmt.Errorf("%w: landmarks coincide", ErrDegenerate)
	}
	return translation(-cx, -cy).Then(scaling(1/rms, 1/rms)), nil
}

// Residual returns the root mean square distance between t(observed) and reference.
func Residual(t Transform, observed, reference [5]detector.Point) float64 {
	var sum float64
	for i := range observed {
		x, y := t.apply(float64(observed[i].X), float64(observed[i].Y))
		dx := x - float64(reference[i].X)
		dy := y - float64(reference[i].Y)
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / float64(len(observed)))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
