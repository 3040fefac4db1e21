package detector

import (
	"fmt"
	"image"

	"github.com/dudu/facealign/internal/inference"
)

// RawStrideOutput holds the validated output buffers of one detection head.
// Scores has K entries, Boxes 4*K and Landmarks 10*K (nil without keypoints).
type RawStrideOutput struct {
	Stride    int
	Scores    []float32
	Boxes     []float32
	Landmarks []float32
}

// Len returns the number of anchors K
func (r RawStrideOutput) Len() int {
	return len(r.Scores)
}

// ParseStrideOutputs maps engine outputs onto one RawStrideOutput per stride.
//
// Outputs are looked up by name (score_8, bbox_8, kps_8, ...). Models exported
// with numeric output names are read positionally instead: all score heads,
// then all box heads, then (optionally) all keypoint heads, each in stride order.
func ParseStrideOutputs(outputs []inference.Tensor, inputSize image.Point, strides []int, numAnchors int) ([]RawStrideOutput, error) {
	byName := make(map[string]inference.Tensor, len(outputs))
	for _, t := range outputs {
		byName[t.Name] = t
	}

	n := len(strides)
	positional := false
	if _, ok := byName[fmt.Sprintf("score_%d", strides[0])]; !ok {
		if len(outputs) != 2*n && len(outputs) != 3*n {
			return nil, fmt.Errorf("%w: expected %d or %d outputs, got %d", ErrOutputShape, 2*n, 3*n, len(outputs))
		}
		positional = true
	}

	result := make([]RawStrideOutput, 0, n)
	for level, stride := range strides {
		var scoreT, bboxT inference.Tensor
		var kpsT *inference.Tensor

		if positional {
			scoreT = outputs[level]
			bboxT = outputs[level+n]
			if len(outputs) == 3*n {
				kpsT = &outputs[level+2*n]
			}
		} else {
			var ok bool
			if scoreT, ok = byName[fmt.Sprintf("score_%d", stride)]; !ok {
				return nil, fmt.Errorf("%w: missing score_%d", ErrOutputShape, stride)
			}
			if bboxT, ok = byName[fmt.Sprintf("bbox_%d", stride)]; !ok {
				return nil, fmt.Errorf("%w: missing bbox_%d", ErrOutputShape, stride)
			}
			if t, ok := byName[fmt.Sprintf("kps_%d", stride)]; ok {
				kpsT = &t
			}
		}

		k := AnchorCount(inputSize, stride, numAnchors)
		out := RawStrideOutput{Stride: stride}

		var err error
		if out.Scores, err = rows(scoreT, k, 1); err != nil {
			return nil, fmt.Errorf("stride %d scores: %w", stride, err)
		}
		if out.Boxes, err = rows(bboxT, k, 4); err != nil {
			return nil, fmt.Errorf("stride %d boxes: %w", stride, err)
		}
		if kpsT != nil {
			if out.Landmarks, err = rows(*kpsT, k, 10); err != nil {
				return nil, fmt.Errorf("stride %d keypoints: %w", stride, err)
			}
		}
		result = append(result, out)
	}

	return result, nil
}

// rows checks that t holds k rows of width cols, accepting both [k,cols] and
// the batched [1,k,cols] layout.
func rows(t inference.Tensor, k, cols int) ([]float32, error) {
	shape := t.Shape
	if len(shape) == 3 {
		if shape[0] != 1 {
			return nil, fmt.Errorf("%w: %s batch size %d", ErrOutputShape, t.Name, shape[0])
		}
		shape = shape[1:]
	}
	if len(shape) == 2 && (shape[0] != int64(k) || shape[1] != int64(cols)) {
		return nil, fmt.Errorf("%w: %s shape %v, want [%d %d]", ErrOutputShape, t.Name, t.Shape, k, cols)
	}
	if len(t.Data) != k*cols {
		return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrOutputShape, t.Name, len(t.Data), k*cols)
	}
	return t.Data, nil
}
