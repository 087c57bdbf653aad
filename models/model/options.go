// Package model - Model presets.
package model

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/model/preprocess"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// DefaultConfig returns the stock configuration of a known model. Path is left
// empty; everything else matches the published exports of each network.
//
// Arguments:
//   - name: The model to describe.
//
// Returns:
//   - Config: The preset.
//   - error: If the name is unknown.
//
// @example
// cfg, err := DefaultConfig(ModelNameNanoDet)
// cfg.Path = "model/nanodet_m.onnx"
func DefaultConfig(name Name) (Config, error) {
	switch name {
	case ModelNameNanoDet:
		return Config{
			Name:    ModelNameNanoDet,
			Family:  ModelFamilyCOCO,
			Labels:  "builtin:coco",
			Inputs:  []string{"input.1"},
			Outputs: []string{"792", "795", "814", "817", "836", "839"},
			Geometry: Geometry{
				InputWidth:          320,
				InputHeight:         320,
				Strides:             []int{8, 16, 32},
				NumClasses:          80,
				RegMax:              DefaultRegMax,
				ConfidenceThreshold: 0.4,
				NMS:                 postprocess.DefaultNMSConfig(),
			},
			Preprocess: preprocess.GetNanoDetConfig(),
		}, nil
	case ModelNameSSD:
		return Config{
			Name:    ModelNameSSD,
			Family:  ModelFamilyVOC,
			Labels:  "builtin:voc",
			Inputs:  []string{"input"},
			Outputs: []string{"detection_out"},
			Geometry: Geometry{
				InputWidth:          300,
				InputHeight:         300,
				NumClasses:          21,
				ConfidenceThreshold: 0.2,
				NMS:                 postprocess.DefaultNMSConfig(),
			},
			Preprocess: preprocess.GetSSDConfig(),
		}, nil
	case ModelNameMobileNetV2:
		return Config{
			Name:    ModelNameMobileNetV2,
			Family:  ModelFamilyImageNet,
			Inputs:  []string{"data"},
			Outputs: []string{"prob"},
			Geometry: Geometry{
				InputWidth:  224,
				InputHeight: 224,
				NumClasses:  1000,
			},
			Preprocess: preprocess.GetMobileNetV2Config(),
		}, nil
	default:
		return Config{}, errors.Wrapf(postprocess.ErrInvalidConfig, "no preset for model %q", name)
	}
}
