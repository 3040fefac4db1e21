package pipeline

import (
	"fmt"
	"image"

	"github.com/dudu/facealign/internal/align"
	"github.com/dudu/facealign/internal/detector"
)

// Backend selects the raster implementation
type Backend string

const (
	BackendImaging Backend = "imaging"
	BackendOpenCV  Backend = "opencv"
)

// ParseBackend validates a backend name
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendImaging, BackendOpenCV:
		return b, nil
	case "":
		return BackendImaging, nil
	}
	return "", fmt.Errorf("unknown raster backend %q", s)
}

// FaceDetector interface for face detection
type FaceDetector interface {
	Detect(img image.Image) ([]detector.Face, error)
	Close() error
}

// FaceAligner interface for 5-point face alignment
type FaceAligner interface {
	Align(img image.Image, landmarks detector.Landmarks) (image.Image, align.Transform, error)
}

var (
	_ FaceDetector = (*detector.SCRFD)(nil)
	_ FaceAligner  = (*align.Aligner)(nil)
)
