package inference

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/tensors"
)

func TestEngineFunc(t *testing.T) {
	var got []float32
	var engine Engine = EngineFunc(func(_ context.Context, input []float32) ([]tensors.Tensor, error) {
		got = input
		return []tensors.Tensor{{Name: "out", Shape: []int{1}, Data: []float32{7}}}, nil
	})

	out, err := engine.Run(context.Background(), []float32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got)
	assert.Equal(t, "out", out[0].Name)
	assert.NoError(t, engine.Close())
}

func TestSessionArgsValidate(t *testing.T) {
	valid := SessionArgs{
		ModelPath:  "model.onnx",
		InputShape: []int64{1, 3, 320, 320},
		Provider:   providers.DefaultConfig(),
	}
	require.NoError(t, valid.validate())

	tests := []struct {
		name   string
		mutate func(a *SessionArgs)
	}{
		{"no model", func(a *SessionArgs) { a.ModelPath = "" }},
		{"two inputs", func(a *SessionArgs) { a.Inputs = []string{"a", "b"} }},
		{"no shape", func(a *SessionArgs) { a.InputShape = nil }},
		{"zero dimension", func(a *SessionArgs) { a.InputShape = []int64{1, 3, 0, 320} }},
		{"dynamic dimension", func(a *SessionArgs) { a.InputShape = []int64{-1, 3, 320, 320} }},
		{"bad provider", func(a *SessionArgs) { a.Provider.Backend = "tpu" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := valid
			tt.mutate(&args)
			assert.Error(t, args.validate())
		})
	}
}

func TestSessionRunChecksBeforeNativeCall(t *testing.T) {
	s := &Session{inputShape: ort.NewShape(1, 2), inputSize: 2}

	_, err := s.Run(context.Background(), []float32{1})
	assert.True(t, errors.Is(err, postprocess.ErrShapeMismatch))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx, []float32{1, 2})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Run(context.Background(), []float32{1, 2})
	assert.EqualError(t, err, "session is closed")

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestLibraryPath(t *testing.T) {
	t.Setenv(LibraryPathEnv, "/opt/ort/libonnxruntime.so")
	p, err := DefaultLibraryPath()
	require.NoError(t, err)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", p)

	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{"linux", "amd64", "./third_party/onnxruntime.so", false},
		{"linux", "arm64", "./third_party/onnxruntime_arm64.so", false},
		{"darwin", "arm64", "./third_party/libonnxruntime.dylib", false},
		{"windows", "amd64", "./third_party/onnxruntime.dll", false},
		{"windows", "386", "", true},
		{"plan9", "amd64", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := platformLibraryPath(tt.goos, tt.goarch)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShapeHelpers(t *testing.T) {
	assert.Equal(t, 1*3*4*5, inputSize([]int64{1, 3, 4, 5}))
	assert.Equal(t, 0, inputSize(nil))
	assert.Equal(t, 0, inputSize([]int64{-1, 3}))
	assert.Equal(t, []int{1, 8400, 6}, toInts(ort.NewShape(1, 8400, 6)))
}
