// Package models - registry for models.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/labels"
	"github.com/nvr-ai/go-detect/models/mobilenet"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/nanodet"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/ssd"
)

// NewDecoder creates the detection decoder of the configured model.
//
// This factory is the entry point for decoder creation. It routes by model name
// to the model-specific constructors, which validate the geometry and the label
// table before anything runs.
//
// Arguments:
//   - cfg: The model configuration.
//   - table: The label table of the model's classes.
//   - opts: NanoDet options, ignored by other models.
//
// Returns:
//   - model.Decoder: The decoder.
//   - error: If the model is not a detector or the configuration is unusable.
//
// Example:
//
// ```go
//
//	cfg, _ := model.DefaultConfig(model.ModelNameNanoDet)
//	table, _ := labels.Resolve(cfg.Labels)
//	decoder, err := NewDecoder(cfg, table)
//	if err != nil {
//	    log.Fatalf("Failed to create decoder: %v", err)
//	}
//
// ```
func NewDecoder(cfg model.Config, table *labels.Table, opts ...nanodet.Option) (model.Decoder, error) {
	switch cfg.Name {
	case model.ModelNameSSD:
		m, err := ssd.NewModel(cfg, table)
		if err != nil {
			return nil, err
		}
		return m, nil
	case model.ModelNameNanoDet:
		m, err := nanodet.NewModel(cfg, table, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case model.ModelNameMobileNetV2:
		return nil, errors.Wrapf(postprocess.ErrInvalidConfig, "model %q is a classifier", cfg.Name)
	default:
		return nil, errors.Wrapf(postprocess.ErrInvalidConfig, "unsupported model name: %s", cfg.Name)
	}
}

// NewClassifier creates the classification decoder of the configured model.
func NewClassifier(cfg model.Config, table *labels.Table) (model.Classifier, error) {
	switch cfg.Name {
	case model.ModelNameMobileNetV2:
		m, err := mobilenet.NewModel(cfg, table)
		if err != nil {
			return nil, err
		}
		return m, nil
	case model.ModelNameSSD, model.ModelNameNanoDet:
		return nil, errors.Wrapf(postprocess.ErrInvalidConfig, "model %q is a detector", cfg.Name)
	default:
		return nil, errors.Wrapf(postprocess.ErrInvalidConfig, "unsupported model name: %s", cfg.Name)
	}
}

// LoadLabels resolves the label source of a model configuration. Detectors
// must name one; classifiers without one report class ids only and get a nil
// table.
func LoadLabels(cfg model.Config) (*labels.Table, error) {
	if cfg.Labels == "" {
		if cfg.Name.Task() == model.TaskClassification {
			return nil, nil
		}
		return nil, errors.Wrapf(postprocess.ErrInvalidConfig, "model %q needs a label source", cfg.Name)
	}

	table, err := labels.Resolve(cfg.Labels)
	if err != nil {
		return nil, errors.Wrapf(err, "labels for model %q", cfg.Name)
	}
	return table, nil
}
