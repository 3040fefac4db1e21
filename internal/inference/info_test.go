package inference

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelInfo(t *testing.T) {
	tests := []struct {
		name    string
		info    ModelInfo
		size    image.Point
		fixed   bool
		batched bool
	}{
		{
			name: "fixed 640 batched",
			info: ModelInfo{
				Inputs:  []IOInfo{{Name: "input.1", Dimensions: []int64{1, 3, 640, 640}}},
				Outputs: []IOInfo{{Name: "score_8", Dimensions: []int64{1, 12800, 1}}},
			},
			size: image.Pt(640, 640), fixed: true, batched: true,
		},
		{
			name: "dynamic unbatched",
			info: ModelInfo{
				Inputs:  []IOInfo{{Name: "input.1", Dimensions: []int64{1, 3, -1, -1}}},
				Outputs: []IOInfo{{Name: "448", Dimensions: []int64{-1, 1}}},
			},
		},
		{
			name: "non rectangular width and height",
			info: ModelInfo{
				Inputs:  []IOInfo{{Name: "images", Dimensions: []int64{1, 3, 480, 640}}},
				Outputs: []IOInfo{{Name: "out", Dimensions: []int64{3200, 4}}},
			},
			size: image.Pt(640, 480), fixed: true,
		},
		{
			name: "not NCHW",
			info: ModelInfo{Inputs: []IOInfo{{Name: "x", Dimensions: []int64{640, 640}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, ok := tt.info.FixedInputSize()
			assert.Equal(t, tt.fixed, ok)
			assert.Equal(t, tt.size, size)
			assert.Equal(t, tt.batched, tt.info.Batched())
		})
	}
}

func TestModelInfoNames(t *testing.T) {
	info := ModelInfo{
		Inputs:  []IOInfo{{Name: "input.1"}},
		Outputs: []IOInfo{{Name: "score_8"}, {Name: "bbox_8"}, {Name: "kps_8"}},
	}
	assert.Equal(t, []string{"input.1"}, info.InputNames())
	assert.Equal(t, []string{"score_8", "bbox_8", "kps_8"}, info.OutputNames())
}

func TestNewSessionRequiresInitialize(t *testing.T) {
	_, err := NewSession("model.onnx", SessionOptions{}, nil)
	require.ErrorIs(t, err, ErrNotInitialized)

	// Shutdown without Initialize is a no-op
	assert.NoError(t, Shutdown())
}
