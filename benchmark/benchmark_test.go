package benchmark

import (
	"context"
	"encoding/csv"
	"image"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// mockDetector fails every failEvery-th call and otherwise returns two
// detections with fixed timings.
type mockDetector struct {
	calls     atomic.Int64
	warmups   int
	failEvery int64
	warmupErr error
}

func (m *mockDetector) Detect(_ context.Context, _ image.Image) (*detector.Result, error) {
	n := m.calls.Add(1)
	if m.failEvery > 0 && n%m.failEvery == 0 {
		return nil, errors.New("frame failed")
	}
	return &detector.Result{
		Detections: make([]postprocess.Detection, 2),
		Timings: detector.Timings{
			TimePreProcess:  time.Millisecond,
			TimeInference:   4 * time.Millisecond,
			TimePostProcess: time.Millisecond,
		},
	}, nil
}

func (m *mockDetector) Warmup(_ context.Context, runs int) error {
	m.warmups += runs
	return m.warmupErr
}

func corpus() []image.Image {
	return []image.Image{image.NewRGBA(image.Rect(0, 0, 4, 4)), image.NewRGBA(image.Rect(0, 0, 8, 8))}
}

func TestNewSuite(t *testing.T) {
	_, err := NewSuite(&mockDetector{}, nil, nil)
	assert.Error(t, err)

	suite, err := NewSuite(&mockDetector{}, corpus(), nil)
	require.NoError(t, err)
	assert.Empty(t, suite.GetResults())
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		wantErr  bool
	}{
		{"valid", Scenario{Name: "a", Iterations: 1}, false},
		{"no name", Scenario{Iterations: 1}, true},
		{"no iterations", Scenario{Name: "a"}, true},
		{"negative workers", Scenario{Name: "a", Iterations: 1, Workers: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scenario.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunScenario(t *testing.T) {
	det := &mockDetector{failEvery: 4}
	suite, err := NewSuite(det, corpus(), nil)
	require.NoError(t, err)

	m, err := suite.RunScenario(context.Background(), Scenario{Name: "parallel", Iterations: 8, WarmupRuns: 2, Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, det.warmups)
	assert.EqualValues(t, 8, det.calls.Load())
	assert.Equal(t, 2, m.Errors)
	assert.InDelta(t, 0.25, m.ErrorRate, 1e-9)
	assert.Equal(t, 12, m.DetectionCount)
	assert.Equal(t, 4*time.Millisecond, m.InferenceDuration)
	assert.Equal(t, time.Millisecond, m.PreProcessDuration)
	assert.Positive(t, m.FramesPerSecond)
	assert.Positive(t, m.CPUStats.NumCPU)
	assert.Len(t, suite.GetResults(), 1)
}

func TestRunScenarioErrors(t *testing.T) {
	suite, err := NewSuite(&mockDetector{warmupErr: errors.New("no session")}, corpus(), nil)
	require.NoError(t, err)

	_, err = suite.RunScenario(context.Background(), Scenario{Name: "warm", Iterations: 1, WarmupRuns: 1})
	assert.Error(t, err)

	_, err = suite.RunScenario(context.Background(), Scenario{Name: "bad"})
	assert.Error(t, err)
	assert.Empty(t, suite.GetResults())
}

func TestSaveResults(t *testing.T) {
	suite, err := NewSuite(&mockDetector{}, corpus(), nil)
	require.NoError(t, err)
	require.NoError(t, suite.RunAllScenarios(context.Background(), []Scenario{
		{Name: "serial", Iterations: 2},
		{Name: "parallel", Iterations: 4, Workers: 2},
	}))

	resultsFile, summaryFile, err := suite.SaveResults(t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(resultsFile)
	require.NoError(t, err)
	var results []PerformanceMetrics
	require.NoError(t, yaml.Unmarshal(data, &results))
	require.Len(t, results, 2)
	assert.Equal(t, "parallel", results[1].Scenario.Name)
	assert.Equal(t, 8, results[1].DetectionCount)

	f, err := os.Open(summaryFile)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "scenario", rows[0][0])
	assert.Equal(t, []string{"serial", "2", "1"}, rows[1][:3])
}
