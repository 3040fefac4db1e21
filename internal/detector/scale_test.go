package detector

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleFactor(t *testing.T) {
	tests := []struct {
		name        string
		input, orig image.Point
		want        float32
	}{
		{"downscale width bound", image.Pt(640, 640), image.Pt(1280, 960), 0.5},
		{"downscale height bound", image.Pt(640, 640), image.Pt(800, 1600), 0.4},
		{"already fits", image.Pt(640, 640), image.Pt(320, 200), 1},
		{"exact", image.Pt(640, 480), image.Pt(640, 480), 1},
		{"empty image", image.Pt(640, 640), image.Pt(0, 0), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScaleFactor(tt.input, tt.orig), 1e-6)
		})
	}
}

func TestRescaleInverse(t *testing.T) {
	l := LandmarksFromPoints([5]Point{{10, 12}, {30, 12}, {20, 20}, {12, 30}, {28, 30}})
	faces := []Candidate{
		{Box: box(8, 8, 40, 44), Score: 0.9, Landmarks: &l},
		{Box: box(100, 50, 130, 90), Score: 0.7},
	}

	for _, scale := range []float32{0.5, 0.333, 1, 0.8125} {
		rescaled := Rescale(faces, scale)
		require.Len(t, rescaled, len(faces))

		for i, r := range rescaled {
			back := r.Scaled(scale)
			assert.InDelta(t, faces[i].Box.X1, back.Box.X1, 1e-3)
			assert.InDelta(t, faces[i].Box.Y1, back.Box.Y1, 1e-3)
			assert.InDelta(t, faces[i].Box.X2, back.Box.X2, 1e-3)
			assert.InDelta(t, faces[i].Box.Y2, back.Box.Y2, 1e-3)
			assert.Equal(t, faces[i].Score, back.Score)
			if faces[i].Landmarks == nil {
				assert.Nil(t, back.Landmarks)
				continue
			}
			want, got := faces[i].Landmarks.AsSlice(), back.Landmarks.AsSlice()
			assert.InDeltaSlice(t, want, got, 1e-3)
		}
	}

	// input untouched
	assert.Equal(t, box(8, 8, 40, 44), faces[0].Box)
	assert.Equal(t, Point{10, 12}, faces[0].Landmarks.LeftEye)
}

func TestRescaleHalf(t *testing.T) {
	out := Rescale([]Candidate{{Box: box(8, 8, 24, 24)}}, 0.5)
	assert.Equal(t, box(16, 16, 48, 48), out[0].Box)
}

func TestDynamicInputSize(t *testing.T) {
	assert.Equal(t, image.Pt(640, 480), DynamicInputSize(image.Pt(640, 480), 32))
	assert.Equal(t, image.Pt(128, 96), DynamicInputSize(image.Pt(100, 65), 32))
	assert.Equal(t, image.Pt(32, 32), DynamicInputSize(image.Pt(1, 1), 32))
}

func TestAlignmentAngle(t *testing.T) {
	level := Landmarks{LeftEye: Point{10, 20}, RightEye: Point{30, 20}}
	assert.InDelta(t, 0, AlignmentAngle(level), 1e-9)

	// right eye lower in image coordinates: tilted clockwise on screen
	tilted := Landmarks{LeftEye: Point{10, 20}, RightEye: Point{30, 40}}
	assert.InDelta(t, -45, AlignmentAngle(tilted), 1e-9)

	raised := Landmarks{LeftEye: Point{10, 20}, RightEye: Point{30, 0}}
	assert.InDelta(t, 45, AlignmentAngle(raised), 1e-9)
}

func TestBoundingBoxGeometry(t *testing.T) {
	b := box(1, 2, 5, 8)
	assert.Equal(t, float32(4), b.Width())
	assert.Equal(t, float32(6), b.Height())
	assert.Equal(t, float32(24), b.Area())
	assert.Equal(t, Point{3, 5}, b.Center())
	assert.Zero(t, box(5, 5, 1, 1).Area())
}
