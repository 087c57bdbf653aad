package preprocess

// Tests for the image preprocessing pipeline: decoding, resizing, channel
// layout, color order and normalization.

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPreprocessImageNanoDet validates the NanoDet preset end to end.
//
// @example go test -v -run TestPreprocessImageNanoDet
func TestPreprocessImageNanoDet(t *testing.T) {
	p, err := NewPreprocessor(GetNanoDetConfig())
	require.NoError(t, err)

	result, err := p.PreprocessImage(solidImage(640, 480, color.RGBA{100, 150, 200, 255}))
	require.NoError(t, err)

	assert.Equal(t, []int{3, 320, 320}, result.Shape)
	assert.Len(t, result.Data, 3*320*320)
	assert.Equal(t, 640, result.OriginalWidth)
	assert.Equal(t, 480, result.OriginalHeight)

	// A uniform image stays uniform through a bilinear resize.
	plane := 320 * 320
	assert.InDelta(t, (100-104.04)/73.695, result.Data[0], 0.02)
	assert.InDelta(t, (150-113.985)/69.87, result.Data[plane+500], 0.02)
	assert.InDelta(t, (200-119.85)/70.89, result.Data[2*plane+plane-1], 0.02)
}

// TestPreprocessImageColorAndLayout checks channel order and layout on an
// image already at the model size, so no resampling happens.
func TestPreprocessImageColorAndLayout(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}

	tests := []struct {
		name   string
		config Config
		want   []float32
	}{
		{
			name:   "rgb chw",
			config: Config{InputWidth: 2, InputHeight: 1, NormalizationType: NormalizeNone, ChannelOrder: ChannelOrderCHW, ColorMode: ColorModeRGB},
			want:   []float32{255, 255, 0, 0, 0, 0},
		},
		{
			name:   "bgr chw",
			config: Config{InputWidth: 2, InputHeight: 1, NormalizationType: NormalizeNone, ChannelOrder: ChannelOrderCHW, ColorMode: ColorModeBGR},
			want:   []float32{0, 0, 0, 0, 255, 255},
		},
		{
			name:   "rgb hwc",
			config: Config{InputWidth: 2, InputHeight: 1, NormalizationType: NormalizeNone, ChannelOrder: ChannelOrderHWC, ColorMode: ColorModeRGB},
			want:   []float32{255, 0, 0, 255, 0, 0},
		},
		{
			name:   "zero to one",
			config: Config{InputWidth: 2, InputHeight: 1, NormalizationType: NormalizeZeroToOne, ChannelOrder: ChannelOrderHWC, ColorMode: ColorModeRGB},
			want:   []float32{1, 0, 0, 1, 0, 0},
		},
		{
			name:   "minus one to one",
			config: Config{InputWidth: 2, InputHeight: 1, NormalizationType: NormalizeMinusOneToOne, ChannelOrder: ChannelOrderHWC, ColorMode: ColorModeRGB},
			want:   []float32{1, -1, -1, 1, -1, -1},
		},
		{
			name:   "grayscale",
			config: Config{InputWidth: 2, InputHeight: 1, NormalizationType: NormalizeNone, ChannelOrder: ChannelOrderCHW, ColorMode: ColorModeGrayscale},
			want:   []float32{0.299 * 255, 0.299 * 255},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPreprocessor(tt.config)
			require.NoError(t, err)

			result, err := p.PreprocessImage(solidImage(2, 1, red))
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, result.Data, 1e-3)
		})
	}
}

// TestPreprocessMobileNetV2Range verifies the (v - 128) / 128 mapping.
func TestPreprocessMobileNetV2Range(t *testing.T) {
	config := GetMobileNetV2Config()
	config.InputWidth, config.InputHeight = 1, 1

	p, err := NewPreprocessor(config)
	require.NoError(t, err)

	result, err := p.PreprocessImage(solidImage(1, 1, color.RGBA{0, 128, 255, 255}))
	require.NoError(t, err)
	// BGR: blue first.
	assert.InDeltaSlice(t, []float32{127.0 / 128, 0, -1}, result.Data, 1e-6)
}

func TestPreprocessEncoded(t *testing.T) {
	p, err := NewPreprocessor(GetSSDConfig())
	require.NoError(t, err)

	t.Run("png", func(t *testing.T) {
		result, err := p.Preprocess(&Image{Format: ImageFormatPNG, Data: encodePNG(t, 64, 32)})
		require.NoError(t, err)
		assert.Equal(t, []int{3, 300, 300}, result.Shape)
		assert.Equal(t, 64, result.OriginalWidth)
		assert.Equal(t, 32, result.OriginalHeight)
	})

	t.Run("jpeg", func(t *testing.T) {
		result, err := p.Preprocess(&Image{Format: ImageFormatJPEG, Data: encodeJPEG(t, 80, 60)})
		require.NoError(t, err)
		assert.Len(t, result.Data, 3*300*300)
	})

	t.Run("corrupted", func(t *testing.T) {
		_, err := p.Preprocess(&Image{Format: ImageFormatJPEG, Data: []byte("not a jpeg")})
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := p.Preprocess(&Image{Format: ImageFormatPNG})
		assert.Error(t, err)
		_, err = p.Preprocess(nil)
		assert.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := GetNanoDetConfig()

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero width", func(c *Config) { c.InputWidth = 0 }},
		{"bad layout", func(c *Config) { c.ChannelOrder = "nchw" }},
		{"bad color", func(c *Config) { c.ColorMode = "yuv" }},
		{"bad normalization", func(c *Config) { c.NormalizationType = "l2" }},
		{"short mean", func(c *Config) { c.MeanValues = []float32{1} }},
		{"zero std", func(c *Config) { c.StdValues = []float32{1, 0, 1} }},
	}

	require.NoError(t, valid.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := GetNanoDetConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
			_, err := NewPreprocessor(c)
			assert.Error(t, err)
		})
	}
}

func TestConfigurationPresets(t *testing.T) {
	for name, c := range map[string]Config{
		"nanodet":      GetNanoDetConfig(),
		"ssd":          GetSSDConfig(),
		"mobilenet-v2": GetMobileNetV2Config(),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Validate())
			assert.Equal(t, []int64{1, 3, int64(c.InputHeight), int64(c.InputWidth)}, c.Shape())
		})
	}
}

// TestBatchPreprocess checks ordering and error propagation of the parallel path.
func TestBatchPreprocess(t *testing.T) {
	config := GetSSDConfig()
	config.InputWidth, config.InputHeight = 8, 8
	p, err := NewPreprocessor(config)
	require.NoError(t, err)

	images := []*Image{
		{Format: ImageFormatPNG, Data: encodePNG(t, 10, 20)},
		{Format: ImageFormatPNG, Data: encodePNG(t, 30, 40)},
		{Format: ImageFormatPNG, Data: encodePNG(t, 50, 60)},
	}

	results, err := p.BatchPreprocess(context.Background(), images, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, 10+20*i, r.OriginalWidth)
	}

	images = append(images, &Image{Format: ImageFormatPNG, Data: []byte{1, 2, 3}})
	_, err = p.BatchPreprocess(context.Background(), images, 2)
	assert.Error(t, err)
}

func BenchmarkPreprocessImageNanoDet(b *testing.B) {
	p, err := NewPreprocessor(GetNanoDetConfig())
	require.NoError(b, err)
	img := solidImage(1280, 720, color.RGBA{10, 20, 30, 255})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.PreprocessImage(img); err != nil {
			b.Fatal(err)
		}
	}
}

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t testing.TB, width, height int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(width, height, color.RGBA{40, 80, 120, 255})))
	return buf.Bytes()
}

func encodeJPEG(t testing.TB, width, height int) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidImage(width, height, color.RGBA{40, 80, 120, 255}), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}
