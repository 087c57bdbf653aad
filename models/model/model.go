// Package model - Model identity, geometry and decoder contracts.
package model

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/model/preprocess"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/tensors"
)

// Family is the label family a model was trained on.
type Family string

const (
	// ModelFamilyCOCO is the COCO model family.
	ModelFamilyCOCO Family = "coco"
	// ModelFamilyVOC is the Pascal VOC model family.
	ModelFamilyVOC Family = "voc"
	// ModelFamilyImageNet is the ImageNet classification family.
	ModelFamilyImageNet Family = "imagenet"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameSSD is MobileNetV3 SSDLite, a direct-box detector.
	ModelNameSSD Name = "ssd-mobilenet-v3"
	// ModelNameNanoDet is NanoDet, an anchor-free distribution detector.
	ModelNameNanoDet Name = "nanodet"
	// ModelNameMobileNetV2 is the MobileNetV2 image classifier.
	ModelNameMobileNetV2 Name = "mobilenet-v2"
)

// Task is what a model's output means.
type Task string

const (
	// TaskDetection produces bounding boxes.
	TaskDetection Task = "detection"
	// TaskClassification produces class scores for the whole image.
	TaskClassification Task = "classification"
)

// Task returns the task of a known model name.
func (n Name) Task() Task {
	if n == ModelNameMobileNetV2 {
		return TaskClassification
	}
	return TaskDetection
}

// DefaultRegMax is the highest distance bin of NanoDet's box distribution.
const DefaultRegMax = 7

// Geometry describes the fixed input and output layout of a model.
type Geometry struct {
	// InputWidth and InputHeight are the model input dimensions in pixels.
	InputWidth  int `json:"input_width"  yaml:"input_width"`
	InputHeight int `json:"input_height" yaml:"input_height"`
	// Strides lists the feature map strides, in output order, for distribution models.
	Strides []int `json:"strides,omitempty" yaml:"strides,omitempty"`
	// NumClasses is the width of the class score map.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// RegMax is the highest distance bin; each box side has RegMax+1 bins.
	RegMax int `json:"reg_max,omitempty" yaml:"reg_max,omitempty"`
	// ConfidenceThreshold is the exclusive lower bound on emitted scores.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// NMS configures suppression.
	NMS postprocess.NMSConfig `json:"nms" yaml:"nms"`
}

// DecodeOptions tweaks decoding without changing the model layout.
type DecodeOptions struct {
	// ExactExp uses the exact exponential in the distribution softmax.
	ExactExp bool `json:"exact_exp" yaml:"exact_exp"`
	// SkipMismatchedStrides drops a stride whose tensors have the wrong shape
	// instead of failing the whole frame.
	SkipMismatchedStrides bool `json:"skip_mismatched_strides" yaml:"skip_mismatched_strides"`
	// SuppressDirect runs suppression on direct-box output, which is normally
	// already suppressed inside the network.
	SuppressDirect bool `json:"suppress_direct" yaml:"suppress_direct"`
	// Softmax turns classifier logits into probabilities before ranking.
	Softmax bool `json:"softmax" yaml:"softmax"`
}

// Config is a model with its geometry, label source and tensor names.
type Config struct {
	Name   Name   `json:"name"   yaml:"name"`
	Family Family `json:"family" yaml:"family"`
	Path   string `json:"path"   yaml:"path"`
	// Labels is a label file path or a builtin set such as "builtin:coco".
	Labels string `json:"labels" yaml:"labels"`
	// Inputs names the input tensor.
	Inputs []string `json:"inputs" yaml:"inputs"`
	// Outputs names the output tensors. Distribution models list the class
	// and distribution tensors of each stride in turn.
	Outputs    []string          `json:"outputs"    yaml:"outputs"`
	Geometry   Geometry          `json:"geometry"   yaml:"geometry"`
	Decode     DecodeOptions     `json:"decode"     yaml:"decode"`
	Preprocess preprocess.Config `json:"preprocess" yaml:"preprocess"`
}

// Validate checks the configuration for values no decoder can work with.
// Errors wrap postprocess.ErrInvalidConfig.
func (c Config) Validate() error {
	g := c.Geometry

	switch c.Name {
	case ModelNameSSD, ModelNameNanoDet, ModelNameMobileNetV2:
	default:
		return errors.Wrapf(postprocess.ErrInvalidConfig, "unsupported model name %q", c.Name)
	}

	if g.InputWidth <= 0 || g.InputHeight <= 0 {
		return errors.Wrapf(postprocess.ErrInvalidConfig, "input dimensions must be positive, got %dx%d", g.InputWidth, g.InputHeight)
	}
	if g.ConfidenceThreshold < 0 || g.ConfidenceThreshold > 1 {
		return errors.Wrapf(postprocess.ErrInvalidConfig, "confidence threshold %v outside [0, 1]", g.ConfidenceThreshold)
	}
	if g.NMS.IoUThreshold < 0 || g.NMS.IoUThreshold > 1 {
		return errors.Wrapf(postprocess.ErrInvalidConfig, "iou threshold %v outside [0, 1]", g.NMS.IoUThreshold)
	}
	if g.NumClasses < 0 {
		return errors.Wrapf(postprocess.ErrInvalidConfig, "num classes %d is negative", g.NumClasses)
	}

	if c.Name == ModelNameNanoDet {
		if g.NumClasses == 0 {
			return errors.Wrap(postprocess.ErrInvalidConfig, "distribution models need num_classes")
		}
		if g.RegMax <= 0 {
			return errors.Wrapf(postprocess.ErrInvalidConfig, "reg_max must be positive, got %d", g.RegMax)
		}
		if len(g.Strides) == 0 {
			return errors.Wrap(postprocess.ErrInvalidConfig, "distribution models need at least one stride")
		}
		for _, s := range g.Strides {
			if s <= 0 {
				return errors.Wrapf(postprocess.ErrInvalidConfig, "stride %d must be positive", s)
			}
		}
		if len(c.Outputs) != 0 && len(c.Outputs) != 2*len(g.Strides) {
			return errors.Wrapf(postprocess.ErrInvalidConfig,
				"%d strides need %d output names, got %d", len(g.Strides), 2*len(g.Strides), len(c.Outputs))
		}
	}

	return nil
}

// CheckLabels verifies that a label table of size n covers every class id
// the model can emit.
func (c Config) CheckLabels(n int) error {
	if n == 0 {
		return errors.Wrap(postprocess.ErrInvalidConfig, "label table is empty")
	}
	if n < c.Geometry.NumClasses {
		return errors.Wrapf(postprocess.ErrInvalidConfig,
			"label table has %d entries, model has %d classes", n, c.Geometry.NumClasses)
	}
	return nil
}

// Preprocessing returns the preprocess configuration with input dimensions
// taken from the geometry when unset.
func (c Config) Preprocessing() preprocess.Config {
	p := c.Preprocess
	if p.InputWidth == 0 {
		p.InputWidth = c.Geometry.InputWidth
	}
	if p.InputHeight == 0 {
		p.InputHeight = c.Geometry.InputHeight
	}
	return p
}

// Decoder turns raw detection tensors into detections in image space.
type Decoder interface {
	// Decode decodes one frame. imageWidth and imageHeight are the original
	// image dimensions the detections are mapped back to.
	Decode(outputs []tensors.Tensor, imageWidth, imageHeight int) ([]postprocess.Detection, error)
}

// Classifier turns raw classification tensors into ranked classes.
type Classifier interface {
	// Classify returns the k best classes, best first.
	Classify(outputs []tensors.Tensor, k int) ([]postprocess.Classification, error)
}
