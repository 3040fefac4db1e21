package detector

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/facealign/internal/inference"
	"github.com/dudu/facealign/internal/raster"
)

type hit struct {
	stride int
	index  int
	score  float32
	box    [4]float32
	kps    [10]float32
}

// fakeEngine answers every Run with zeroed heads sized for the input
// tensor, plus the configured hits.
type fakeEngine struct {
	hits    []hit
	batched bool
	err     error

	inputs []inference.Tensor
	closed bool
}

func (e *fakeEngine) Run(input inference.Tensor) ([]inference.Tensor, error) {
	e.inputs = append(e.inputs, input)
	if e.err != nil {
		return nil, e.err
	}

	size := image.Pt(int(input.Shape[3]), int(input.Shape[2]))
	outputs := headTensors(size, true, e.batched, true)
	for _, h := range e.hits {
		level := map[int]int{8: 0, 16: 1, 32: 2}[h.stride]
		outputs[level].Data[h.index] = h.score
		copy(outputs[level+3].Data[h.index*4:], h.box[:])
		copy(outputs[level+6].Data[h.index*10:], h.kps[:])
	}
	return outputs, nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

func newTestSCRFD(t *testing.T, engine Engine, mutate func(*Config)) *SCRFD {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := NewSCRFD(engine, raster.NewImaging(), cfg, nil)
	require.NoError(t, err)
	return d
}

func TestDetectDynamicInput(t *testing.T) {
	engine := &fakeEngine{hits: []hit{
		// grid (2,2) of stride 8 on a 64 wide input
		{stride: 8, index: 36, score: 0.9, box: [4]float32{1, 1, 1, 1},
			kps: [10]float32{-1, -1, 1, -1, 0, 0, -0.5, 1, 0.5, 1}},
		// overlaps the first one, suppressed
		{stride: 16, index: 10, score: 0.7, box: [4]float32{0.5, 0.5, 0.5, 0.5}},
		// below threshold
		{stride: 32, index: 0, score: 0.3, box: [4]float32{1, 1, 1, 1}},
	}}
	d := newTestSCRFD(t, engine, nil)

	img := imaging.New(60, 50, color.White)
	faces, err := d.Detect(img)
	require.NoError(t, err)

	require.Len(t, engine.inputs, 1)
	assert.Equal(t, []int64{1, 3, 64, 64}, engine.inputs[0].Shape)
	assert.Equal(t, "input.1", engine.inputs[0].Name)

	require.Len(t, faces, 1)
	assert.Equal(t, float32(0.9), faces[0].Confidence)
	assert.Equal(t, BoundingBox{X1: 8, Y1: 8, X2: 24, Y2: 24}, faces[0].Box)
	require.NotNil(t, faces[0].Landmarks)
	assert.Equal(t, Point{X: 16, Y: 16}, faces[0].Landmarks.Nose)
}

func TestDetectLetterboxScale(t *testing.T) {
	engine := &fakeEngine{
		batched: true,
		hits: []hit{{stride: 8, index: 36, score: 0.9, box: [4]float32{1, 1, 1, 1},
			kps: [10]float32{-1, -1, 1, -1, 0, 0, -0.5, 1, 0.5, 1}}},
	}
	d := newTestSCRFD(t, engine, func(c *Config) {
		c.InputSize = image.Pt(64, 64)
	})

	faces, err := d.Detect(imaging.New(128, 96, color.Black))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 64, 64}, engine.inputs[0].Shape)

	require.Len(t, faces, 1)
	assert.Equal(t, BoundingBox{X1: 16, Y1: 16, X2: 48, Y2: 48}, faces[0].Box)
	assert.Equal(t, Point{X: 16, Y: 16}, faces[0].Landmarks.LeftEye)
	assert.Equal(t, Point{X: 48, Y: 16}, faces[0].Landmarks.RightEye)
}

func TestDetectNormalizesInput(t *testing.T) {
	engine := &fakeEngine{}
	d := newTestSCRFD(t, engine, nil)

	img := imaging.New(32, 32, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	faces, err := d.Detect(img)
	require.NoError(t, err)
	assert.Empty(t, faces)

	data := engine.inputs[0].Data
	plane := 32 * 32
	require.Len(t, data, 3*plane)
	assert.InDelta(t, 0.5, data[0], 1e-6)
	assert.InDelta(t, -0.5, data[plane], 1e-6)
	assert.InDelta(t, -0.3, data[2*plane], 1e-6)
}

func TestDetectDimensionMismatch(t *testing.T) {
	engine := &fakeEngine{}
	d := newTestSCRFD(t, engine, func(c *Config) {
		c.InputSize = image.Pt(64, 64)
		c.AutoResize = false
	})

	_, err := d.Detect(imaging.New(100, 64, color.Black))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Empty(t, engine.inputs, "engine must not run")

	_, err = d.Detect(imaging.New(64, 64, color.Black))
	assert.NoError(t, err)
}

// brokenOps fails every conversion the way a raster backend reports it
type brokenOps struct {
	*raster.Imaging
}

func (brokenOps) Letterbox(image.Image, image.Point, color.Color) image.Image {
	return image.NewNRGBA(image.Rect(0, 0, 0, 0))
}

func TestDetectFailedLetterbox(t *testing.T) {
	engine := &fakeEngine{}
	d, err := NewSCRFD(engine, brokenOps{raster.NewImaging()}, DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = d.Detect(imaging.New(60, 50, color.Black))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Empty(t, engine.inputs, "engine must not see an empty tensor")
}

func TestDetectEngineError(t *testing.T) {
	boom := errors.New("device lost")
	engine := &fakeEngine{err: boom}
	d := newTestSCRFD(t, engine, nil)

	_, err := d.Detect(imaging.New(32, 32, color.Black))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, engine.inputs, 1, "engine failures are not retried")
}

func TestNewSCRFDInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no strides", func(c *Config) { c.Strides = nil }},
		{"negative stride", func(c *Config) { c.Strides = []int{8, -16} }},
		{"no anchors", func(c *Config) { c.AnchorsPerLocation = 0 }},
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"zero nms", func(c *Config) { c.NMSThreshold = 0 }},
		{"half input size", func(c *Config) { c.InputSize = image.Pt(640, 0) }},
		{"input below stride", func(c *Config) { c.InputSize = image.Pt(16, 16) }},
		{"zero std", func(c *Config) { c.Normalization.Std[1] = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewSCRFD(&fakeEngine{}, raster.NewImaging(), cfg, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewSCRFD(nil, raster.NewImaging(), DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSCRFDClose(t *testing.T) {
	engine := &fakeEngine{}
	d := newTestSCRFD(t, engine, nil)
	require.NoError(t, d.Close())
	assert.True(t, engine.closed)
}
