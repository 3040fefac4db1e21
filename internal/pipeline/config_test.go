package pipeline

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/facealign/internal/detector"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []int{8, 16, 32}, cfg.Detector.Strides)
	assert.Equal(t, float32(0.5), cfg.Detector.ConfidenceThreshold)
	assert.Equal(t, float32(0.4), cfg.Detector.NMSThreshold)
	assert.True(t, cfg.Detector.AutoResize)
	assert.Equal(t, 112, cfg.AlignSize)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facealign.yaml")
	yaml := `
detector_model: /models/scrfd_10g_bnkps.onnx
backend: opencv
workers: 4
detector:
  input_size: {x: 640, y: 640}
  confidence_threshold: 0.6
  auto_resize: false
  normalization:
    mean: [0.5, 0.5, 0.5]
    std: [0.5, 0.5, 0.5]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/models/scrfd_10g_bnkps.onnx", cfg.DetectorModel)
	assert.Equal(t, BackendOpenCV, cfg.Backend)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, image.Pt(640, 640), cfg.Detector.InputSize)
	assert.Equal(t, float32(0.6), cfg.Detector.ConfidenceThreshold)
	assert.False(t, cfg.Detector.AutoResize)
	assert.Equal(t, [3]float32{0.5, 0.5, 0.5}, cfg.Detector.Normalization.Std)

	// untouched keys keep their defaults
	assert.Equal(t, float32(0.4), cfg.Detector.NMSThreshold)
	assert.Equal(t, []int{8, 16, 32}, cfg.Detector.Strides)
	assert.Equal(t, 112, cfg.AlignSize)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [1"), 0o644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("detector:\n  nms_threshold: 2\n"), 0o644))
	_, err = LoadConfig(invalid)
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Backend = "vulkan" }},
		{"align size", func(c *Config) { c.AlignSize = 0 }},
		{"blur factor", func(c *Config) { c.BlurSigmaFactor = 0 }},
		{"profile scale", func(c *Config) { c.ProfileScale = 0.5 }},
		{"workers", func(c *Config) { c.Workers = -1 }},
		{"detector", func(c *Config) { c.Detector.AnchorsPerLocation = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendImaging, b)

	b, err = ParseBackend("opencv")
	require.NoError(t, err)
	assert.Equal(t, BackendOpenCV, b)

	_, err = ParseBackend("metal")
	assert.Error(t, err)
}
