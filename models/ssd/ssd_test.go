package ssd

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/models/labels"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/tensors"
)

func vocTable(t testing.TB) *labels.Table {
	table, err := labels.Builtin("voc")
	require.NoError(t, err)
	return table
}

func view(t testing.TB, rows ...[]float32) *tensors.View {
	var data []float32
	for _, r := range rows {
		data = append(data, r...)
	}
	v, err := tensors.NewView(data, len(rows), RowSize)
	require.NoError(t, err)
	return v
}

// TestDecodeDirectBoxesScaled covers the 640x480 scaling scenario.
//
// @example go test -v -run TestDecodeDirectBoxesScaled
func TestDecodeDirectBoxesScaled(t *testing.T) {
	v := view(t, []float32{2, 0.9, 0.1, 0.2, 0.6, 0.8})

	dets, err := DecodeDirectBoxes(v, 0.5, vocTable(t), &ImageSize{Width: 640, Height: 480})
	require.NoError(t, err)
	require.Len(t, dets, 1)

	d := dets[0]
	assert.Equal(t, 2, d.ClassID)
	assert.Equal(t, "bicycle", d.Label)
	assert.Equal(t, float32(0.9), d.Score)
	assert.InDelta(t, 64, d.Box.X, 1e-3)
	assert.InDelta(t, 96, d.Box.Y, 1e-3)
	assert.InDelta(t, 320, d.Box.Width, 1e-3)
	assert.InDelta(t, 288, d.Box.Height, 1e-3)
}

func TestDecodeDirectBoxesGeometry(t *testing.T) {
	tests := []struct {
		name string
		row  []float32
		want postprocess.Box
	}{
		{
			name: "in bounds",
			row:  []float32{1, 0.9, 0.25, 0.5, 0.75, 1},
			want: postprocess.Box{X: 0.25, Y: 0.5, Width: 0.5, Height: 0.5},
		},
		{
			name: "negative corner keeps the extra size",
			row:  []float32{1, 0.9, -0.1, -0.2, 0.5, 0.5},
			want: postprocess.Box{X: 0, Y: 0, Width: 0.6, Height: 0.7},
		},
		{
			name: "far corner clamped at one",
			row:  []float32{1, 0.9, 0.5, 0.5, 1.2, 1.5},
			want: postprocess.Box{X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5},
		},
		{
			name: "inverted box passes through",
			row:  []float32{1, 0.9, 0.6, 0.6, 0.4, 0.5},
			want: postprocess.Box{X: 0.6, Y: 0.6, Width: -0.2, Height: -0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dets, err := DecodeDirectBoxes(view(t, tt.row), 0.5, vocTable(t), nil)
			require.NoError(t, err)
			require.Len(t, dets, 1)
			assert.InDelta(t, tt.want.X, dets[0].Box.X, 1e-6)
			assert.InDelta(t, tt.want.Y, dets[0].Box.Y, 1e-6)
			assert.InDelta(t, tt.want.Width, dets[0].Box.Width, 1e-6)
			assert.InDelta(t, tt.want.Height, dets[0].Box.Height, 1e-6)
		})
	}
}

func TestDecodeDirectBoxesThreshold(t *testing.T) {
	v := view(t,
		[]float32{1, 0.49, 0, 0, 1, 1},
		[]float32{2, 0.5, 0, 0, 1, 1},
		[]float32{3, 0.51, 0, 0, 1, 1},
		[]float32{4, 0.99, 0, 0, 1, 1},
	)

	dets, err := DecodeDirectBoxes(v, 0.5, vocTable(t), nil)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, 3, dets[0].ClassID, "tensor order is preserved")
	assert.Equal(t, 4, dets[1].ClassID)
}

// TestDecodeDirectBoxesScoresAboveThreshold checks the score bound on random rows.
func TestDecodeDirectBoxesScoresAboveThreshold(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	rows := make([][]float32, 200)
	for i := range rows {
		rows[i] = []float32{float32(rng.Intn(21)), rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32()}
	}

	for _, threshold := range []float32{0, 0.2, 0.5, 0.9} {
		dets, err := DecodeDirectBoxes(view(t, rows...), threshold, vocTable(t), nil)
		require.NoError(t, err)
		for _, d := range dets {
			assert.Greater(t, d.Score, threshold)
		}
	}
}

func TestDecodeDirectBoxesErrors(t *testing.T) {
	t.Run("class out of range", func(t *testing.T) {
		_, err := DecodeDirectBoxes(view(t, []float32{21, 0.9, 0, 0, 1, 1}), 0.5, vocTable(t), nil)
		assert.True(t, errors.Is(err, postprocess.ErrClassOutOfRange))
	})

	t.Run("rejected rows are not looked up", func(t *testing.T) {
		dets, err := DecodeDirectBoxes(view(t, []float32{99, 0.1, 0, 0, 1, 1}), 0.5, vocTable(t), nil)
		require.NoError(t, err)
		assert.Empty(t, dets)
	})

	t.Run("wrong row width", func(t *testing.T) {
		v, err := tensors.NewView(make([]float32, 10), 2, 5)
		require.NoError(t, err)
		_, err = DecodeDirectBoxes(v, 0.5, vocTable(t), nil)
		assert.True(t, errors.Is(err, postprocess.ErrShapeMismatch))
	})

	t.Run("no candidates", func(t *testing.T) {
		v, err := tensors.NewView(nil, 0, RowSize)
		require.NoError(t, err)
		dets, err := DecodeDirectBoxes(v, 0.5, vocTable(t), nil)
		require.NoError(t, err)
		assert.Empty(t, dets)
	})
}

func newSSD(t testing.TB, mutate func(c *model.Config)) *SSD {
	cfg, err := model.DefaultConfig(model.ModelNameSSD)
	require.NoError(t, err)
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewModel(cfg, vocTable(t))
	require.NoError(t, err)
	return m
}

func TestSSDDecode(t *testing.T) {
	data := []float32{
		15, 0.8, 0.1, 0.1, 0.5, 0.5,
		15, 0.7, 0.1, 0.1, 0.5, 0.45,
		7, 0.1, 0.2, 0.2, 0.3, 0.3,
	}
	outputs := []tensors.Tensor{
		{Name: "other", Shape: []int{1}, Data: []float32{0}},
		{Name: "detection_out", Shape: []int{1, 3, 6}, Data: data},
	}

	t.Run("by name, no suppression", func(t *testing.T) {
		dets, err := newSSD(t, nil).Decode(outputs, 200, 100)
		require.NoError(t, err)
		require.Len(t, dets, 2)
		assert.Equal(t, "person", dets[0].Label)
		assert.InDelta(t, 20, dets[0].Box.X, 1e-4)
		assert.InDelta(t, 10, dets[0].Box.Y, 1e-4)
		assert.InDelta(t, 80, dets[0].Box.Width, 1e-4)
		assert.InDelta(t, 40, dets[0].Box.Height, 1e-4)
	})

	t.Run("with suppression", func(t *testing.T) {
		m := newSSD(t, func(c *model.Config) { c.Decode.SuppressDirect = true })
		dets, err := m.Decode(outputs, 200, 100)
		require.NoError(t, err)
		require.Len(t, dets, 1)
		assert.Equal(t, float32(0.8), dets[0].Score)
	})

	t.Run("single unnamed output", func(t *testing.T) {
		dets, err := newSSD(t, nil).Decode([]tensors.Tensor{{Shape: []int{3, 6}, Data: data}}, 200, 100)
		require.NoError(t, err)
		assert.Len(t, dets, 2)
	})

	t.Run("ambiguous outputs", func(t *testing.T) {
		m := newSSD(t, func(c *model.Config) { c.Outputs = nil })
		_, err := m.Decode(outputs, 200, 100)
		assert.True(t, errors.Is(err, postprocess.ErrShapeMismatch))
	})
}

func TestNewModelRejectsSmallLabelTable(t *testing.T) {
	cfg, err := model.DefaultConfig(model.ModelNameSSD)
	require.NoError(t, err)

	table, err := labels.New([]string{"a", "b"})
	require.NoError(t, err)
	_, err = NewModel(cfg, table)
	assert.True(t, errors.Is(err, postprocess.ErrInvalidConfig))

	_, err = NewModel(cfg, nil)
	assert.Error(t, err)
}
