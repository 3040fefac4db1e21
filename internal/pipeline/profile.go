package pipeline

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/dudu/facealign/internal/detector"
	"github.com/dudu/facealign/internal/raster"
)

// ErrNoFace is returned when an operation needs a face and none was found
var ErrNoFace = errors.New("no face found in image")

// CropProfile crops a square, upright portrait around the most confident
// face. The face box is enlarged by the configured profile scale, the crop
// is rotated so the eyes are level and downscaled to at most the configured
// edge length. Parts of the square outside the image are padded black.
func (p *Pipeline) CropProfile(img image.Image) (image.Image, error) {
	faces, err := p.Detect(img)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoFace
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.Confidence > best.Confidence {
			best = f
		}
	}

	angle := 0.0
	if best.Landmarks != nil {
		angle = detector.AlignmentAngle(*best.Landmarks)
	}

	square := profileSquare(best.Box, p.config.ProfileScale)
	out := p.cropRotated(img, square, angle)

	if edge := p.config.ProfileMaxEdge; edge > 0 && square.Dx() > edge {
		out = p.ops.Resize(out, edge, edge)
	}

	p.logger.Debug("profile crop",
		zap.Float32("confidence", best.Confidence),
		zap.Float64("angle", angle),
		zap.Stringer("square", square))
	return out, nil
}

// profileSquare scales box around its center and returns the smallest square
// containing it
func profileSquare(box detector.BoundingBox, scale float64) image.Rectangle {
	c := box.Center()
	side := math.Max(float64(box.Width()), float64(box.Height())) * scale
	side = math.Max(math.Round(side), 1)
	x0 := int(math.Round(float64(c.X) - side/2))
	y0 := int(math.Round(float64(c.Y) - side/2))
	return image.Rect(x0, y0, x0+int(side), y0+int(side))
}

// cropRotated returns square rotated clockwise by angle degrees around its
// center. Only the region the rotated square can reach is rotated.
func (p *Pipeline) cropRotated(img image.Image, square image.Rectangle, angle float64) image.Image {
	side := square.Dx()
	bounds := image.Rectangle{Max: raster.Size(img)}
	center := image.Pt(square.Min.X+side/2, square.Min.Y+side/2)

	// any rotation of the square fits in its circumscribed square
	reach := int(math.Ceil(float64(side) * math.Sqrt2 / 2))
	region := image.Rect(center.X-reach, center.Y-reach, center.X+reach, center.Y+reach).Intersect(bounds)
	if region.Empty() {
		return imaging.New(side, side, color.Black)
	}
	src := p.ops.Crop(img, region)

	var pos image.Point
	if math.Abs(angle) < 1e-3 {
		pos = square.Min.Sub(region.Min)
	} else {
		// Ops.Rotate turns counter-clockwise and grows the canvas around the center
		rotated := p.ops.Rotate(src, -angle, color.Black)
		dx := float64(center.X) - float64(region.Min.X) - float64(region.Dx())/2
		dy := float64(center.Y) - float64(region.Min.Y) - float64(region.Dy())/2
		theta := -angle * math.Pi / 180
		rx := dx*math.Cos(theta) + dy*math.Sin(theta)
		ry := -dx*math.Sin(theta) + dy*math.Cos(theta)

		size := raster.Size(rotated)
		cx := float64(size.X)/2 + rx
		cy := float64(size.Y)/2 + ry
		pos = image.Pt(int(math.Round(cx))-side/2, int(math.Round(cy))-side/2)
		src = rotated
	}

	// hard crop, then pad what fell outside the image back to a full square
	crop := image.Rectangle{Min: pos, Max: pos.Add(image.Pt(side, side))}
	visible := crop.Intersect(image.Rectangle{Max: raster.Size(src)})
	out := p.ops.Crop(src, visible)
	if visible.Size() == crop.Size() {
		return out
	}

	canvas := imaging.New(side, side, color.Black)
	return imaging.Paste(canvas, out, visible.Min.Sub(crop.Min))
}
