package inference

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// ErrNotInitialized is returned when a session is created before Initialize.
var ErrNotInitialized = errors.New("ONNX Runtime not initialized, call Initialize() first")

var (
	initialized bool
	initMu      sync.Mutex
)

// Initialize sets up ONNX Runtime environment (call once at startup).
// An empty libPath keeps the onnxruntime_go default lookup.
func Initialize(libPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	initialized = true
	return nil
}

// Shutdown cleans up ONNX Runtime environment
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}

	initialized = false
	return nil
}

// Tensor is a named float32 tensor crossing the engine boundary
type Tensor struct {
	Name  string
	Shape []int64
	Data  []float32
}

// SessionOptions tunes session creation
type SessionOptions struct {
	CoreML     bool // try the CoreML execution provider, falls back to CPU
	NumThreads int  // intra-op threads, 0 lets onnxruntime decide
}

// Session wraps an ONNX Runtime inference session. Run may be called from
// multiple goroutines; onnxruntime sessions are safe for concurrent runs.
type Session struct {
	session   *ort.DynamicAdvancedSession
	modelPath string
	info      ModelInfo
}

// NewSession creates a new inference session for every input and output
// the model declares.
func NewSession(modelPath string, opts SessionOptions, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	initMu.Lock()
	ready := initialized
	initMu.Unlock()
	if !ready {
		return nil, ErrNotInitialized
	}

	info, err := ReadModelInfo(modelPath)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if opts.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(opts.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	provider := "cpu"
	if opts.CoreML {
		// Flag 0 = default settings, use Neural Engine + GPU
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			logger.Warn("CoreML execution provider unavailable, using CPU",
				zap.String("model", modelPath), zap.Error(err))
		} else {
			provider = "coreml"
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		info.InputNames(),
		info.OutputNames(),
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}

	logger.Info("model loaded",
		zap.String("model", modelPath),
		zap.String("provider", provider),
		zap.Int("outputs", len(info.Outputs)))

	return &Session{
		session:   session,
		modelPath: modelPath,
		info:      info,
	}, nil
}

// Info returns the model's declared inputs and outputs
func (s *Session) Info() ModelInfo {
	return s.info
}

// Run executes inference on a single input tensor and returns every model
// output in declaration order.
func (s *Session) Run(input Tensor) ([]Tensor, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// nil outputs are allocated by onnxruntime with their runtime shapes
	outputs := make([]ort.Value, len(s.info.Outputs))
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	result := make([]Tensor, len(outputs))
	for i, v := range outputs {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %s is not a float32 tensor", s.info.Outputs[i].Name)
		}
		data := t.GetData()
		result[i] = Tensor{
			Name:  s.info.Outputs[i].Name,
			Shape: append([]int64(nil), t.GetShape()...),
			Data:  append([]float32(nil), data...),
		}
	}
	return result, nil
}

// Close releases session resources
func (s *Session) Close() error {
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
