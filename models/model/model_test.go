package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

func TestDefaultConfigsAreValid(t *testing.T) {
	for _, name := range []Name{ModelNameNanoDet, ModelNameSSD, ModelNameMobileNetV2} {
		t.Run(string(name), func(t *testing.T) {
			cfg, err := DefaultConfig(name)
			require.NoError(t, err)
			assert.NoError(t, cfg.Validate())
			assert.Equal(t, name, cfg.Name)

			p := cfg.Preprocessing()
			assert.Equal(t, cfg.Geometry.InputWidth, p.InputWidth)
			assert.Equal(t, cfg.Geometry.InputHeight, p.InputHeight)
		})
	}

	_, err := DefaultConfig("yolov9")
	assert.True(t, errors.Is(err, postprocess.ErrInvalidConfig))
}

// TestValidate covers the configuration errors that must be fatal at construction.
//
// @example go test -v -run TestValidate
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		model  Name
		mutate func(c *Config)
	}{
		{"unknown model", ModelNameNanoDet, func(c *Config) { c.Name = "resnet" }},
		{"zero width", ModelNameNanoDet, func(c *Config) { c.Geometry.InputWidth = 0 }},
		{"negative height", ModelNameSSD, func(c *Config) { c.Geometry.InputHeight = -1 }},
		{"threshold above one", ModelNameSSD, func(c *Config) { c.Geometry.ConfidenceThreshold = 1.5 }},
		{"negative threshold", ModelNameNanoDet, func(c *Config) { c.Geometry.ConfidenceThreshold = -0.1 }},
		{"iou above one", ModelNameNanoDet, func(c *Config) { c.Geometry.NMS.IoUThreshold = 2 }},
		{"zero reg max", ModelNameNanoDet, func(c *Config) { c.Geometry.RegMax = 0 }},
		{"no strides", ModelNameNanoDet, func(c *Config) { c.Geometry.Strides = nil }},
		{"zero stride", ModelNameNanoDet, func(c *Config) { c.Geometry.Strides = []int{8, 0} }},
		{"no classes", ModelNameNanoDet, func(c *Config) { c.Geometry.NumClasses = 0 }},
		{"output names per stride", ModelNameNanoDet, func(c *Config) { c.Outputs = []string{"cls", "dis"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := DefaultConfig(tt.model)
			require.NoError(t, err)
			tt.mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), postprocess.ErrInvalidConfig))
		})
	}
}

func TestValidateAllowsPositionalOutputs(t *testing.T) {
	cfg, err := DefaultConfig(ModelNameNanoDet)
	require.NoError(t, err)
	cfg.Outputs = nil
	assert.NoError(t, cfg.Validate())
}

func TestCheckLabels(t *testing.T) {
	cfg, err := DefaultConfig(ModelNameNanoDet)
	require.NoError(t, err)

	assert.NoError(t, cfg.CheckLabels(80))
	assert.NoError(t, cfg.CheckLabels(81))
	assert.True(t, errors.Is(cfg.CheckLabels(79), postprocess.ErrInvalidConfig))
	assert.True(t, errors.Is(cfg.CheckLabels(0), postprocess.ErrInvalidConfig))
}

func TestNameTask(t *testing.T) {
	assert.Equal(t, TaskDetection, ModelNameNanoDet.Task())
	assert.Equal(t, TaskDetection, ModelNameSSD.Task())
	assert.Equal(t, TaskClassification, ModelNameMobileNetV2.Task())
}
