package detector

import (
	"fmt"
	"image"
	"image/color"
	"slices"

	"go.uber.org/zap"

	"github.com/dudu/facealign/internal/inference"
	"github.com/dudu/facealign/internal/raster"
)

// Engine runs the detection model. inference.Session implements it.
type Engine interface {
	Run(input inference.Tensor) ([]inference.Tensor, error)
	Close() error
}

// Config holds SCRFD detector parameters
type Config struct {
	// InputSize is the model input size. The zero value derives it from
	// each image, rounded up to a multiple of the largest stride.
	InputSize           image.Point          `yaml:"input_size"`
	Strides             []int                `yaml:"strides"`
	AnchorsPerLocation  int                  `yaml:"anchors_per_location"`
	ConfidenceThreshold float32              `yaml:"confidence_threshold"`
	NMSThreshold        float32              `yaml:"nms_threshold"`
	AutoResize          bool                 `yaml:"auto_resize"`
	Normalization       raster.Normalization `yaml:"normalization"`
	InputName           string               `yaml:"input_name"`
}

// DefaultConfig returns the configuration of the reference SCRFD export
func DefaultConfig() Config {
	return Config{
		Strides:             []int{8, 16, 32},
		AnchorsPerLocation:  2,
		ConfidenceThreshold: 0.5,
		NMSThreshold:        0.4,
		AutoResize:          true,
		Normalization:       raster.DetectorNormalization,
		InputName:           "input.1",
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if len(c.Strides) == 0 {
		return fmt.Errorf("%w: no strides", ErrInvalidConfig)
	}
	for _, s := range c.Strides {
		if s <= 0 {
			return fmt.Errorf("%w: stride %d", ErrInvalidConfig, s)
		}
	}
	if c.AnchorsPerLocation <= 0 {
		return fmt.Errorf("%w: anchors per location %d", ErrInvalidConfig, c.AnchorsPerLocation)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold %v outside [0,1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("%w: nms threshold %v outside (0,1]", ErrInvalidConfig, c.NMSThreshold)
	}
	if c.InputSize.X < 0 || c.InputSize.Y < 0 {
		return fmt.Errorf("%w: input size %v", ErrInvalidConfig, c.InputSize)
	}
	if (c.InputSize.X == 0) != (c.InputSize.Y == 0) {
		return fmt.Errorf("%w: input size %v must set both dimensions", ErrInvalidConfig, c.InputSize)
	}
	maxStride := slices.Max(c.Strides)
	if c.InputSize.X > 0 && (c.InputSize.X < maxStride || c.InputSize.Y < maxStride) {
		return fmt.Errorf("%w: input size %v smaller than stride %d", ErrInvalidConfig, c.InputSize, maxStride)
	}
	if err := c.Normalization.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SCRFD implements the SCRFD face detector
type SCRFD struct {
	engine  Engine
	ops     raster.Ops
	cfg     Config
	anchors *AnchorCache
	logger  *zap.Logger
}

// NewSCRFD creates a detector around an already loaded engine
func NewSCRFD(engine Engine, ops raster.Ops, cfg Config, logger *zap.Logger) (*SCRFD, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrInvalidConfig)
	}
	if ops == nil {
		return nil, fmt.Errorf("%w: nil raster ops", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.Strides = slices.Clone(cfg.Strides)
	return &SCRFD{
		engine:  engine,
		ops:     ops,
		cfg:     cfg,
		anchors: NewAnchorCache(),
		logger:  logger,
	}, nil
}

// NewSCRFDFromModel loads an ONNX model and creates a detector for it.
// A fixed input size declared by the model overrides cfg.InputSize.
func NewSCRFDFromModel(modelPath string, opts inference.SessionOptions, ops raster.Ops, cfg Config, logger *zap.Logger) (*SCRFD, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	session, err := inference.NewSession(modelPath, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	info := session.Info()
	if size, ok := info.FixedInputSize(); ok {
		if cfg.InputSize != (image.Point{}) && cfg.InputSize != size {
			logger.Warn("model declares a fixed input size, ignoring configured size",
				zap.Stringer("configured", cfg.InputSize),
				zap.Stringer("model", size))
		}
		cfg.InputSize = size
	}
	if len(info.Inputs) > 0 {
		cfg.InputName = info.Inputs[0].Name
	}

	d, err := NewSCRFD(session, ops, cfg, logger)
	if err != nil {
		session.Close()
		return nil, err
	}

	logger.Info("SCRFD detector ready",
		zap.String("model", modelPath),
		zap.Stringer("input_size", cfg.InputSize),
		zap.Bool("batched", info.Batched()),
		zap.Bool("keypoints", len(info.Outputs) == 3*len(cfg.Strides)))
	return d, nil
}

// Config returns the detector configuration
func (s *SCRFD) Config() Config {
	return s.cfg
}

// InputSizeFor returns the model input size used for an image of the given size
func (s *SCRFD) InputSizeFor(size image.Point) image.Point {
	if s.cfg.InputSize != (image.Point{}) {
		return s.cfg.InputSize
	}
	return DynamicInputSize(size, slices.Max(s.cfg.Strides))
}

// Detect finds faces in an image. Faces are ordered by descending
// confidence; an image without faces yields an empty result and no error.
func (s *SCRFD) Detect(img image.Image) ([]Face, error) {
	orig := raster.Size(img)
	if orig.X <= 0 || orig.Y <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDimensionMismatch)
	}

	inputSize := s.InputSizeFor(orig)
	if !s.cfg.AutoResize && orig != inputSize {
		return nil, fmt.Errorf("%w: image is %v, model expects %v", ErrDimensionMismatch, orig, inputSize)
	}

	// Preprocess: letterbox to the top-left corner, pad black
	blob := img
	if orig != inputSize || img.Bounds().Min != (image.Point{}) {
		blob = s.ops.Letterbox(img, inputSize, color.Black)
		if got := raster.Size(blob); got != inputSize {
			return nil, fmt.Errorf("%w: letterbox produced %v, model expects %v", ErrDimensionMismatch, got, inputSize)
		}
	}
	scale := ScaleFactor(inputSize, orig)

	data, shape := raster.ToTensor(blob, s.cfg.Normalization)
	outputs, err := s.engine.Run(inference.Tensor{Name: s.cfg.InputName, Shape: shape, Data: data})
	if err != nil {
		return nil, fmt.Errorf("SCRFD inference: %w", err)
	}

	heads, err := ParseStrideOutputs(outputs, inputSize, s.cfg.Strides, s.cfg.AnchorsPerLocation)
	if err != nil {
		return nil, err
	}

	perStride := make([][]Candidate, len(heads))
	for i, head := range heads {
		anchors := s.anchors.Get(inputSize, head.Stride, s.cfg.AnchorsPerLocation)
		perStride[i] = DecodeStride(head, anchors, s.cfg.ConfidenceThreshold)
	}

	candidates := Fuse(perStride...)
	keep := NMS(candidates, s.cfg.NMSThreshold)
	kept := Rescale(Select(candidates, keep), scale)

	s.logger.Debug("detect",
		zap.Stringer("image", orig),
		zap.Stringer("input", inputSize),
		zap.Float32("scale", scale),
		zap.Int("candidates", len(candidates)),
		zap.Int("faces", len(kept)))

	faces := make([]Face, len(kept))
	for i, c := range kept {
		faces[i] = Face{Box: c.Box, Landmarks: c.Landmarks, Confidence: c.Score}
	}
	return faces, nil
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.engine.Close()
}
