package pipeline

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dudu/facealign/internal/detector"
)

// Config holds pipeline configuration
type Config struct {
	DetectorModel string          `yaml:"detector_model"`
	ORTLibrary    string          `yaml:"ort_library"`
	CoreML        bool            `yaml:"coreml"`
	NumThreads    int             `yaml:"num_threads"`
	Backend       Backend         `yaml:"backend"`
	Detector      detector.Config `yaml:"detector"`

	// Align produces an aligned crop for every face with landmarks
	Align     bool `yaml:"align"`
	AlignSize int  `yaml:"align_size"`

	BlurSigmaFactor float64 `yaml:"blur_sigma_factor"`
	ProfileMaxEdge  int     `yaml:"profile_max_edge"`
	ProfileScale    float64 `yaml:"profile_scale"`

	Workers int `yaml:"workers"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		DetectorModel:   "models/scrfd_2.5g_kps.onnx",
		Backend:         BackendImaging,
		Detector:        detector.DefaultConfig(),
		Align:           true,
		AlignSize:       112,
		BlurSigmaFactor: 10,
		ProfileMaxEdge:  640,
		ProfileScale:    1.35,
		Workers:         1,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		errs = append(errs, err)
	}
	if err := c.Detector.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.AlignSize <= 0 {
		errs = append(errs, fmt.Errorf("align size must be positive, got %d", c.AlignSize))
	}
	if c.BlurSigmaFactor <= 0 {
		errs = append(errs, fmt.Errorf("blur sigma factor must be positive, got %v", c.BlurSigmaFactor))
	}
	if c.ProfileScale < 1 {
		errs = append(errs, fmt.Errorf("profile scale must be at least 1, got %v", c.ProfileScale))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	return errors.Join(errs...)
}
