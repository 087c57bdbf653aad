package postprocess

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemapToImageSpace(t *testing.T) {
	dets := []Detection{
		{ClassID: 1, Score: 0.5, Box: box(32, 64, 160, 320)},
	}

	require.NoError(t, RemapToImageSpace(dets, 320, 320, 640, 480))
	assert.InDelta(t, 64, dets[0].Box.X, 1e-4)
	assert.InDelta(t, 96, dets[0].Box.Y, 1e-4)
	assert.InDelta(t, 320, dets[0].Box.Width, 1e-4)
	assert.InDelta(t, 480, dets[0].Box.Height, 1e-4)
	assert.Equal(t, 1, dets[0].ClassID, "remap must not touch class or score")
	assert.Equal(t, float32(0.5), dets[0].Score)
}

// TestRemapInverse checks that remapping back with the inverse ratios restores the input.
func TestRemapInverse(t *testing.T) {
	original := []Detection{
		{Box: box(1.5, 2.5, 30, 40)},
		{Box: box(0, 0, -3, 7)},
		{Box: box(310, 299, 10, 21)},
	}
	dets := append([]Detection(nil), original...)

	require.NoError(t, RemapToImageSpace(dets, 320, 320, 1920, 1080))
	require.NoError(t, RemapToImageSpace(dets, 1920, 1080, 320, 320))

	for i := range dets {
		assert.InDelta(t, original[i].Box.X, dets[i].Box.X, 1e-3)
		assert.InDelta(t, original[i].Box.Y, dets[i].Box.Y, 1e-3)
		assert.InDelta(t, original[i].Box.Width, dets[i].Box.Width, 1e-3)
		assert.InDelta(t, original[i].Box.Height, dets[i].Box.Height, 1e-3)
	}
}

func TestRemapRejectsInvalidModelDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 320}, {320, 0}, {-1, 320}} {
		err := RemapToImageSpace([]Detection{{}}, dims[0], dims[1], 640, 480)
		assert.True(t, errors.Is(err, ErrInvalidConfig), "dims %v", dims)
	}
}

func TestScaleDoesNotClamp(t *testing.T) {
	dets := []Detection{{Box: box(300, 300, 100, 100)}}
	Scale(dets, 2, 3)
	assert.Equal(t, box(600, 900, 200, 300), dets[0].Box)
}
