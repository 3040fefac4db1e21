package raster

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Normalization maps 8-bit channels to model input values:
// v = (pixel/255 - Mean[c]) / Std[c], with channels in RGB order unless BGR is set.
type Normalization struct {
	Mean [3]float32 `yaml:"mean"`
	Std  [3]float32 `yaml:"std"`
	BGR  bool       `yaml:"bgr"`
}

// DetectorNormalization is the SCRFD convention: pixel/255 - 0.5, no variance scaling.
var DetectorNormalization = Normalization{
	Mean: [3]float32{0.5, 0.5, 0.5},
	Std:  [3]float32{1, 1, 1},
}

// Validate checks that no standard deviation is zero
func (n Normalization) Validate() error {
	for c, s := range n.Std {
		if s == 0 {
			return fmt.Errorf("normalization std[%d] must not be zero", c)
		}
	}
	return nil
}

// ToTensor converts img to a [1,3,H,W] float32 blob and returns it with its shape.
func ToTensor(img image.Image, norm Normalization) ([]float32, []int64) {
	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	plane := w * h
	data := make([]float32, 3*plane)

	var scale, offset [3]float32
	for c := 0; c < 3; c++ {
		scale[c] = 1 / (255 * norm.Std[c])
		offset[c] = norm.Mean[c] / norm.Std[c]
	}

	first, third := 0, 2
	if norm.BGR {
		first, third = 2, 0
	}

	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < w; x++ {
			idx := y*w + x
			p := row[x*4 : x*4+3]
			data[first*plane+idx] = float32(p[0])*scale[first] - offset[first]
			data[plane+idx] = float32(p[1])*scale[1] - offset[1]
			data[third*plane+idx] = float32(p[2])*scale[third] - offset[third]
		}
	}

	return data, []int64{1, 3, int64(h), int64(w)}
}
