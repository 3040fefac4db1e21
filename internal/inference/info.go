package inference

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
)

// IOInfo describes one declared model input or output
type IOInfo struct {
	Name       string
	Dimensions []int64
}

// ModelInfo holds the declared inputs and outputs of a model
type ModelInfo struct {
	Inputs  []IOInfo
	Outputs []IOInfo
}

// ReadModelInfo reads input and output declarations without creating a session.
func ReadModelInfo(modelPath string) (ModelInfo, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to read model info for %s: %w", modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return ModelInfo{}, fmt.Errorf("model %s declares no inputs or outputs", modelPath)
	}

	info := ModelInfo{
		Inputs:  make([]IOInfo, len(inputs)),
		Outputs: make([]IOInfo, len(outputs)),
	}
	for i, in := range inputs {
		info.Inputs[i] = IOInfo{Name: in.Name, Dimensions: append([]int64(nil), in.Dimensions...)}
	}
	for i, out := range outputs {
		info.Outputs[i] = IOInfo{Name: out.Name, Dimensions: append([]int64(nil), out.Dimensions...)}
	}
	return info, nil
}

// InputNames returns the declared input names
func (m ModelInfo) InputNames() []string {
	names := make([]string, len(m.Inputs))
	for i, in := range m.Inputs {
		names[i] = in.Name
	}
	return names
}

// OutputNames returns the declared output names
func (m ModelInfo) OutputNames() []string {
	names := make([]string, len(m.Outputs))
	for i, out := range m.Outputs {
		names[i] = out.Name
	}
	return names
}

// FixedInputSize returns the NCHW input width and height when the model
// declares them, false for models with dynamic spatial dimensions.
func (m ModelInfo) FixedInputSize() (image.Point, bool) {
	if len(m.Inputs) == 0 || len(m.Inputs[0].Dimensions) != 4 {
		return image.Point{}, false
	}
	dims := m.Inputs[0].Dimensions
	h, w := dims[2], dims[3]
	if h <= 0 || w <= 0 {
		return image.Point{}, false
	}
	return image.Pt(int(w), int(h)), true
}

// Batched reports whether outputs carry a leading batch dimension
func (m ModelInfo) Batched() bool {
	return len(m.Outputs) > 0 && len(m.Outputs[0].Dimensions) == 3
}
