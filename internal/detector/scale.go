package detector

import (
	"image"
	"math"
)

// ScaleFactor returns the factor the original image is resized by to fit the
// model input. It never exceeds 1: images that already fit are used as is.
func ScaleFactor(modelInput, original image.Point) float32 {
	if original.X <= 0 || original.Y <= 0 {
		return 1
	}
	xScale := float64(modelInput.X) / float64(original.X)
	yScale := float64(modelInput.Y) / float64(original.Y)
	return float32(math.Min(math.Min(xScale, yScale), 1))
}

// Rescale maps candidates from model input space back to original image space.
// The input slice is not modified.
func Rescale(faces []Candidate, scale float32) []Candidate {
	out := make([]Candidate, len(faces))
	inv := 1 / scale
	for i, f := range faces {
		out[i] = f.Scaled(inv)
	}
	return out
}

// DynamicInputSize rounds each image dimension up to a multiple of stride.
func DynamicInputSize(size image.Point, stride int) image.Point {
	return image.Pt(roundUp(size.X, stride), roundUp(size.Y, stride))
}

func roundUp(v, m int) int {
	return (v + m - 1) / m * m
}

// AlignmentAngle returns the roll of the eye line in degrees, counter-clockwise
// positive, so rotating the image by it levels the eyes.
func AlignmentAngle(l Landmarks) float64 {
	dx := float64(l.RightEye.X - l.LeftEye.X)
	dy := float64(l.RightEye.Y - l.LeftEye.Y)
	return -math.Atan2(dy, dx) * 180 / math.Pi
}
