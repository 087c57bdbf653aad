package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesPreset(t *testing.T) {
	t.Setenv("MODEL_DIR", "/srv/models")
	path := writeConfig(t, `
log:
  level: debug
engine:
  provider:
    backend: openvino
    openvino:
      device_type: CPU
      precision: FP16
detector:
  relevant_classes: [person, car]
  model:
    name: nanodet
    path: ${MODEL_DIR}/nanodet_m.onnx
    geometry:
      confidence_threshold: 0.5
      nms:
        weighted_merge: true
metrics:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	m := cfg.Detector.Model
	assert.Equal(t, "/srv/models/nanodet_m.onnx", m.Path)
	assert.Equal(t, model.ModelNameNanoDet, m.Name)
	assert.Equal(t, float32(0.5), m.Geometry.ConfidenceThreshold)
	assert.True(t, m.Geometry.NMS.WeightedMerge)
	assert.Equal(t, postprocess.DefaultIoUThreshold, m.Geometry.NMS.IoUThreshold)
	assert.Equal(t, []int{8, 16, 32}, m.Geometry.Strides)
	assert.Equal(t, 80, m.Geometry.NumClasses)
	assert.Equal(t, "builtin:coco", m.Labels)
	assert.Equal(t, []string{"person", "car"}, cfg.Detector.RelevantClasses)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, providers.BackendOpenVINO, cfg.Engine.Provider.Backend)
	assert.Equal(t, providers.DefaultConfig().IntraOpThreads, cfg.Engine.Provider.IntraOpThreads)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "detect", cfg.Metrics.Namespace)

	args := cfg.SessionArgs()
	assert.Equal(t, []int64{1, 3, 320, 320}, args.InputShape)
	assert.Equal(t, m.Outputs, args.Outputs)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{"no model name", "log:\n  level: info\n", true},
		{"unknown model", "detector:\n  model:\n    name: yolo\n", true},
		{"malformed", "detector: [", false},
		{"unknown field", "detector:\n  model:\n    name: nanodet\n    colour: red\n", false},
		{"bad threshold", "detector:\n  model:\n    name: ssd-mobilenet-v3\n    geometry:\n      confidence_threshold: 2\n", true},
		{"bad log level", "log:\n  level: loud\ndetector:\n  model:\n    name: nanodet\n", false},
		{"bad backend", "engine:\n  provider:\n    backend: tpu\ndetector:\n  model:\n    name: nanodet\n", false},
		{"negative warmup", "detector:\n  warmup_runs: -1\n  model:\n    name: nanodet\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			if tt.invalid {
				assert.True(t, errors.Is(err, postprocess.ErrInvalidConfig), "got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg, err := Default(model.ModelNameSSD)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Detector.WarmupRuns)
	assert.Equal(t, []int64{1, 3, 300, 300}, cfg.SessionArgs().InputShape)

	_, err = Default("yolo")
	assert.True(t, errors.Is(err, postprocess.ErrInvalidConfig))
}
