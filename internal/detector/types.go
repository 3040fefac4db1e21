package detector

// Point represents a 2D point
type Point struct {
	X, Y float32
}

// BoundingBox represents a face bounding box
type BoundingBox struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Center returns box center point
func (b BoundingBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Area returns box area (exclusive convention, no +1 pixel)
func (b BoundingBox) Area() float32 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

func (b BoundingBox) scaled(f float32) BoundingBox {
	return BoundingBox{X1: b.X1 * f, Y1: b.Y1 * f, X2: b.X2 * f, Y2: b.Y2 * f}
}

// Landmarks represents 5 facial landmark points
type Landmarks struct {
	LeftEye    Point // index 0
	RightEye   Point // index 1
	Nose       Point // index 2
	LeftMouth  Point // index 3
	RightMouth Point // index 4
}

// LandmarksFromPoints builds Landmarks from points in model output order.
func LandmarksFromPoints(p [5]Point) Landmarks {
	return Landmarks{
		LeftEye:    p[0],
		RightEye:   p[1],
		Nose:       p[2],
		LeftMouth:  p[3],
		RightMouth: p[4],
	}
}

// Points returns the landmarks in model output order.
func (l Landmarks) Points() [5]Point {
	return [5]Point{l.LeftEye, l.RightEye, l.Nose, l.LeftMouth, l.RightMouth}
}

// AsSlice returns landmarks as a flat slice [x0,y0,x1,y1,...]
func (l Landmarks) AsSlice() []float32 {
	return []float32{
		l.LeftEye.X, l.LeftEye.Y,
		l.RightEye.X, l.RightEye.Y,
		l.Nose.X, l.Nose.Y,
		l.LeftMouth.X, l.LeftMouth.Y,
		l.RightMouth.X, l.RightMouth.Y,
	}
}

func (l Landmarks) scaled(f float32) Landmarks {
	p := l.Points()
	for i := range p {
		p[i].X *= f
		p[i].Y *= f
	}
	return LandmarksFromPoints(p)
}

// Candidate is a decoded detection in model input space.
// Landmarks is nil when the model has no keypoint head.
type Candidate struct {
	Box       BoundingBox
	Score     float32
	Landmarks *Landmarks
}

// Scaled returns a copy with every coordinate multiplied by f.
func (c Candidate) Scaled(f float32) Candidate {
	out := Candidate{Box: c.Box.scaled(f), Score: c.Score}
	if c.Landmarks != nil {
		l := c.Landmarks.scaled(f)
		out.Landmarks = &l
	}
	return out
}

// Face represents a detected face in original image coordinates
type Face struct {
	Box        BoundingBox `json:"box"`
	Landmarks  *Landmarks  `json:"landmarks,omitempty"`
	Confidence float32     `json:"confidence"`
}
