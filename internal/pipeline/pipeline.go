package pipeline

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dudu/facealign/internal/align"
	"github.com/dudu/facealign/internal/detector"
	"github.com/dudu/facealign/internal/inference"
	"github.com/dudu/facealign/internal/raster"
)

// ErrNoLandmarks is recorded on faces from a detector without keypoints
var ErrNoLandmarks = errors.New("face has no landmarks")

// Timing holds performance timing information
type Timing struct {
	Detection time.Duration
	Alignment time.Duration
	Total     time.Duration
}

// FaceResult is one detected face and, when alignment ran, its aligned crop.
// Err is set when this face could not be aligned; other faces are unaffected.
type FaceResult struct {
	Face      detector.Face
	Aligned   image.Image
	Transform align.Transform
	Err       error
}

// Result is the outcome of processing one image
type Result struct {
	Size   image.Point
	Faces  []FaceResult
	Timing Timing
}

// Pipeline detects and aligns faces
type Pipeline struct {
	config   Config
	detector FaceDetector
	aligner  FaceAligner
	ops      raster.Ops
	logger   *zap.Logger
	ownsORT  bool

	mu         sync.Mutex
	lastTiming Timing
}

// New creates a pipeline around an existing detector
func New(config Config, det FaceDetector, ops raster.Ops, logger *zap.Logger) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if det == nil || ops == nil {
		return nil, errors.New("pipeline needs a detector and raster ops")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		config:   config,
		detector: det,
		aligner:  align.NewAligner(ops, config.AlignSize, logger.Named("align")),
		ops:      ops,
		logger:   logger,
	}, nil
}

// Open initializes ONNX Runtime, loads the detector model and creates a pipeline
func Open(config Config, ops raster.Ops, logger *zap.Logger) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := inference.Initialize(config.ORTLibrary); err != nil {
		return nil, fmt.Errorf("failed to initialize inference: %w", err)
	}

	det, err := detector.NewSCRFDFromModel(
		config.DetectorModel,
		inference.SessionOptions{CoreML: config.CoreML, NumThreads: config.NumThreads},
		ops,
		config.Detector,
		logger.Named("detector"),
	)
	if err != nil {
		inference.Shutdown()
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	p, err := New(config, det, ops, logger)
	if err != nil {
		det.Close()
		inference.Shutdown()
		return nil, err
	}
	p.ownsORT = true
	return p, nil
}

// Detect runs detection only
func (p *Pipeline) Detect(img image.Image) ([]detector.Face, error) {
	faces, err := p.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	return faces, nil
}

// Process detects faces and, if enabled, aligns each face with landmarks.
// A face that cannot be aligned carries its error and does not stop the others.
func (p *Pipeline) Process(img image.Image) (Result, error) {
	totalStart := time.Now()
	var timing Timing

	// Detect faces
	detectStart := time.Now()
	faces, err := p.Detect(img)
	timing.Detection = time.Since(detectStart)
	if err != nil {
		return Result{}, err
	}

	res := Result{Size: raster.Size(img), Faces: make([]FaceResult, len(faces))}
	for i, face := range faces {
		res.Faces[i].Face = face
		if !p.config.Align {
			continue
		}
		if face.Landmarks == nil {
			res.Faces[i].Err = ErrNoLandmarks
			continue
		}

		alignStart := time.Now()
		aligned, t, err := p.aligner.Align(img, *face.Landmarks)
		timing.Alignment += time.Since(alignStart)
		if err != nil {
			p.logger.Debug("skipping face", zap.Int("face", i), zap.Error(err))
			res.Faces[i].Err = fmt.Errorf("face %d: %w", i, err)
			continue
		}
		res.Faces[i].Aligned = aligned
		res.Faces[i].Transform = t
	}

	timing.Total = time.Since(totalStart)
	res.Timing = timing

	p.mu.Lock()
	p.lastTiming = timing
	p.mu.Unlock()

	return res, nil
}

// BlurFaces returns a copy of img with every detected face Gaussian blurred,
// and the number of faces blurred. The blur sigma is
// max(longest box edge / sigmaFactor, sigmaFactor); sigmaFactor <= 0 uses
// the configured factor.
func (p *Pipeline) BlurFaces(img image.Image, sigmaFactor float64) (image.Image, int, error) {
	if sigmaFactor <= 0 {
		sigmaFactor = p.config.BlurSigmaFactor
	}

	faces, err := p.Detect(img)
	if err != nil {
		return nil, 0, err
	}

	bounds := image.Rectangle{Max: raster.Size(img)}
	out := img
	count := 0
	for _, f := range faces {
		r := roundRect(f.Box).Intersect(bounds)
		if r.Empty() {
			continue
		}
		sigma := math.Max(float64(max(r.Dx(), r.Dy()))/sigmaFactor, sigmaFactor)
		out = p.ops.Blur(out, r, sigma)
		count++
	}

	if count == 0 {
		// keep the copy semantics even when nothing changed
		out = p.ops.Crop(img, bounds)
	}
	return out, count, nil
}

// LastTiming returns timing from last Process call
func (p *Pipeline) LastTiming() Timing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTiming
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error

	if p.detector != nil {
		if err := p.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if p.ownsORT {
		if err := inference.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %w", errors.Join(errs...))
	}
	return nil
}

func roundRect(b detector.BoundingBox) image.Rectangle {
	return image.Rect(
		int(math.Round(float64(b.X1))),
		int(math.Round(float64(b.Y1))),
		int(math.Round(float64(b.X2))),
		int(math.Round(float64(b.Y2))),
	)
}
