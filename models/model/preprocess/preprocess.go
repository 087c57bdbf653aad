// Package preprocess - Converts images into model input tensors.
package preprocess

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG for image.Decode
	"sync"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ImageFormat represents the format of an image.
type ImageFormat string

const (
	// ImageFormatJPEG represents JPEG image format.
	ImageFormatJPEG ImageFormat = "jpeg"
	// ImageFormatPNG represents PNG image format.
	ImageFormatPNG ImageFormat = "png"
)

// Image represents an encoded input image with metadata.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
}

// NormalizationType defines how pixel values are normalized.
type NormalizationType string

const (
	// NormalizeNone keeps pixel values as 0-255.
	NormalizeNone NormalizationType = "none"
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne NormalizationType = "zero_to_one"
	// NormalizeMinusOneToOne scales pixel values to [-1, 1].
	NormalizeMinusOneToOne NormalizationType = "minus_one_to_one"
	// NormalizeStandardize applies (value - mean) / std per channel, in 0-255 units.
	NormalizeStandardize NormalizationType = "standardize"
)

// ChannelOrder defines the ordering of image channels.
type ChannelOrder string

const (
	// ChannelOrderCHW is Channel-Height-Width ordering (common for ONNX).
	ChannelOrderCHW ChannelOrder = "chw"
	// ChannelOrderHWC is Height-Width-Channel ordering.
	ChannelOrderHWC ChannelOrder = "hwc"
)

// ColorMode defines the color space of the image.
type ColorMode string

const (
	// ColorModeRGB is standard RGB color mode.
	ColorModeRGB ColorMode = "rgb"
	// ColorModeBGR is BGR color mode (common for OpenCV-trained models).
	ColorModeBGR ColorMode = "bgr"
	// ColorModeGrayscale is single channel grayscale.
	ColorModeGrayscale ColorMode = "grayscale"
)

// Config defines preprocessing for a specific model.
type Config struct {
	// InputWidth is the expected width of the model input.
	InputWidth int `json:"input_width,omitempty" yaml:"input_width,omitempty"`
	// InputHeight is the expected height of the model input.
	InputHeight int `json:"input_height,omitempty" yaml:"input_height,omitempty"`
	// NormalizationType defines how to normalize pixel values.
	NormalizationType NormalizationType `json:"normalization" yaml:"normalization"`
	// MeanValues for standardization, one per channel in tensor channel order.
	MeanValues []float32 `json:"mean,omitempty" yaml:"mean,omitempty"`
	// StdValues for standardization, one per channel in tensor channel order.
	StdValues []float32 `json:"std,omitempty" yaml:"std,omitempty"`
	// ChannelOrder defines the channel ordering (CHW or HWC).
	ChannelOrder ChannelOrder `json:"channel_order" yaml:"channel_order"`
	// ColorMode defines the color space (RGB, BGR, Grayscale).
	ColorMode ColorMode `json:"color_mode" yaml:"color_mode"`
}

// Channels returns 1 for grayscale and 3 otherwise.
func (c Config) Channels() int {
	if c.ColorMode == ColorModeGrayscale {
		return 1
	}
	return 3
}

// Shape returns the batched input shape, [1, C, H, W] or [1, H, W, C].
func (c Config) Shape() []int64 {
	ch := int64(c.Channels())
	w, h := int64(c.InputWidth), int64(c.InputHeight)
	if c.ChannelOrder == ChannelOrderHWC {
		return []int64{1, h, w, ch}
	}
	return []int64{1, ch, h, w}
}

// Validate checks that the configuration can produce a tensor.
func (c Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Errorf("invalid input dimensions: %dx%d", c.InputWidth, c.InputHeight)
	}
	switch c.ChannelOrder {
	case ChannelOrderCHW, ChannelOrderHWC:
	default:
		return errors.Errorf("unknown channel order %q", c.ChannelOrder)
	}
	switch c.ColorMode {
	case ColorModeRGB, ColorModeBGR, ColorModeGrayscale:
	default:
		return errors.Errorf("unknown color mode %q", c.ColorMode)
	}
	switch c.NormalizationType {
	case NormalizeNone, NormalizeZeroToOne, NormalizeMinusOneToOne:
	case NormalizeStandardize:
		if len(c.MeanValues) != c.Channels() || len(c.StdValues) != c.Channels() {
			return errors.Errorf("standardize needs %d mean and std values, got %d and %d",
				c.Channels(), len(c.MeanValues), len(c.StdValues))
		}
		for i, std := range c.StdValues {
			if std == 0 {
				return errors.Errorf("std value %d is zero", i)
			}
		}
	default:
		return errors.Errorf("unknown normalization %q", c.NormalizationType)
	}
	return nil
}

// Result contains the preprocessed image data and metadata.
type Result struct {
	// Data is the preprocessed float32 tensor data.
	Data []float32
	// OriginalWidth is the original image width before preprocessing.
	OriginalWidth int
	// OriginalHeight is the original image height before preprocessing.
	OriginalHeight int
	// Shape contains the tensor shape [C, H, W] or [H, W, C].
	Shape []int
}

// Preprocessor handles image preprocessing for ONNX models.
type Preprocessor struct {
	config     Config
	bufferPool *sync.Pool
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
// - config: The model-specific preprocessing configuration.
//
// Returns:
// - A configured Preprocessor instance.
// - error if the configuration is invalid.
//
// @example
//
//	preprocessor, err := NewPreprocessor(GetNanoDetConfig())
func NewPreprocessor(config Config) (*Preprocessor, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid preprocess config")
	}

	return &Preprocessor{
		config: config,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}, nil
}

// Config returns the configuration of the preprocessor.
func (p *Preprocessor) Config() Config {
	return p.config
}

// Preprocess decodes an encoded image and converts it to a tensor.
//
// Arguments:
// - img: The encoded input image.
//
// Returns:
// - Result containing the preprocessed tensor and metadata.
// - error if decoding fails.
func (p *Preprocessor) Preprocess(img *Image) (*Result, error) {
	if err := validateInput(img); err != nil {
		return nil, errors.Wrap(err, "input validation failed")
	}

	decoded, err := p.decodeImage(img)
	if err != nil {
		return nil, errors.Wrap(err, "image decoding failed")
	}

	return p.PreprocessImage(decoded)
}

// PreprocessImage resizes a decoded image to the model input size and
// converts it to a normalized tensor.
//
// @example
//
//	result, err := preprocessor.PreprocessImage(img)
//	tensor := result.Data
func (p *Preprocessor) PreprocessImage(img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	resized := p.resizeImage(img)
	tensor := p.imageToTensor(resized)
	p.normalize(tensor)

	ch := p.config.Channels()
	shape := []int{ch, p.config.InputHeight, p.config.InputWidth}
	if p.config.ChannelOrder == ChannelOrderHWC {
		shape = []int{p.config.InputHeight, p.config.InputWidth, ch}
	}

	return &Result{
		Data:           tensor,
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
		Shape:          shape,
	}, nil
}

func validateInput(img *Image) error {
	if img == nil {
		return errors.New("image is nil")
	}
	if len(img.Data) == 0 {
		return errors.New("image data is empty")
	}
	return nil
}

// decodeImage decodes the image data into an image.Image.
func (p *Preprocessor) decodeImage(img *Image) (image.Image, error) {
	buf := p.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		p.bufferPool.Put(buf)
	}()

	buf.Write(img.Data)
	reader := bytes.NewReader(buf.Bytes())

	switch img.Format {
	case ImageFormatJPEG:
		return jpeg.Decode(reader)
	default:
		decoded, _, err := image.Decode(reader)
		return decoded, err
	}
}

// resizeImage stretches the image to the model's input dimensions.
func (p *Preprocessor) resizeImage(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() == p.config.InputWidth && bounds.Dy() == p.config.InputHeight {
		return img
	}
	return resize.Resize(uint(p.config.InputWidth), uint(p.config.InputHeight), img, resize.Bilinear)
}

// imageToTensor converts an image to a float32 tensor of 0-255 values.
func (p *Preprocessor) imageToTensor(img image.Image) []float32 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	channels := p.config.Channels()

	tensor := make([]float32, width*height*channels)
	plane := width * height

	idx := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			r8 := float32(uint8(r >> 8))
			g8 := float32(uint8(g >> 8))
			b8 := float32(uint8(b >> 8))

			if channels == 1 {
				gray := 0.299*r8 + 0.587*g8 + 0.114*b8
				tensor[y*width+x] = gray
				continue
			}

			ch0, ch1, ch2 := r8, g8, b8
			if p.config.ColorMode == ColorModeBGR {
				ch0, ch2 = b8, r8
			}

			if p.config.ChannelOrder == ChannelOrderCHW {
				tensor[0*plane+y*width+x] = ch0
				tensor[1*plane+y*width+x] = ch1
				tensor[2*plane+y*width+x] = ch2
			} else {
				tensor[idx] = ch0
				tensor[idx+1] = ch1
				tensor[idx+2] = ch2
				idx += 3
			}
		}
	}

	return tensor
}

// normalize applies normalization to the tensor in place.
func (p *Preprocessor) normalize(tensor []float32) {
	switch p.config.NormalizationType {
	case NormalizeZeroToOne:
		for i := range tensor {
			tensor[i] /= 255.0
		}
	case NormalizeMinusOneToOne:
		for i := range tensor {
			tensor[i] = (tensor[i] / 127.5) - 1.0
		}
	case NormalizeStandardize:
		channels := p.config.Channels()
		pixelsPerChannel := len(tensor) / channels
		for c := 0; c < channels; c++ {
			mean := p.config.MeanValues[c]
			std := p.config.StdValues[c]

			if p.config.ChannelOrder == ChannelOrderCHW {
				offset := c * pixelsPerChannel
				for i := 0; i < pixelsPerChannel; i++ {
					tensor[offset+i] = (tensor[offset+i] - mean) / std
				}
			} else {
				for i := c; i < len(tensor); i += channels {
					tensor[i] = (tensor[i] - mean) / std
				}
			}
		}
	}
}

// BatchPreprocess processes multiple images in parallel.
//
// Arguments:
// - ctx: Cancels outstanding work when done.
// - images: Slice of images to preprocess.
// - maxConcurrency: Maximum number of images to process concurrently.
//
// Returns:
// - Slice of preprocessing results in input order.
// - error if any preprocessing fails.
//
// @example
//
//	results, err := preprocessor.BatchPreprocess(ctx, []*Image{img1, img2}, 4)
func (p *Preprocessor) BatchPreprocess(ctx context.Context, images []*Image, maxConcurrency int) ([]*Result, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	results := make([]*Result, len(images))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := p.Preprocess(img)
			if err != nil {
				return errors.Wrapf(err, "failed to preprocess image %d", i)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
