// Package ssd - SSD direct-box detection model.
package ssd

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/labels"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/tensors"
)

// SSD decodes the single detection tensor of an SSD-style network.
type SSD struct {
	config model.Config
	labels *labels.Table
}

// NewModel creates a new SSD decoder.
//
// Arguments:
//   - cfg: The model configuration.
//   - table: The label table of the class column.
//
// Returns:
//   - The model.
//   - error: If the configuration or label table is unusable.
func NewModel(cfg model.Config, table *labels.Table) (*SSD, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errors.Wrap(postprocess.ErrInvalidConfig, "ssd requires a label table")
	}
	if err := cfg.CheckLabels(table.Len()); err != nil {
		return nil, err
	}
	return &SSD{config: cfg, labels: table}, nil
}

// Config returns the model configuration.
func (m *SSD) Config() model.Config {
	return m.config
}

// Decode decodes one frame into image-space detections.
func (m *SSD) Decode(outputs []tensors.Tensor, imageWidth, imageHeight int) ([]postprocess.Detection, error) {
	output, err := m.selectOutput(outputs)
	if err != nil {
		return nil, err
	}

	view, err := output.Matrix(RowSize)
	if err != nil {
		return nil, err
	}

	dets, err := DecodeDirectBoxes(view, m.config.Geometry.ConfidenceThreshold, m.labels,
		&ImageSize{Width: imageWidth, Height: imageHeight})
	if err != nil {
		return nil, err
	}

	if m.config.Decode.SuppressDirect {
		return postprocess.Suppress(dets, m.config.Geometry.NMS), nil
	}
	return dets, nil
}

func (m *SSD) selectOutput(outputs []tensors.Tensor) (tensors.Tensor, error) {
	if len(m.config.Outputs) > 0 {
		if t, ok := tensors.Find(outputs, m.config.Outputs[0]); ok {
			return t, nil
		}
	}
	if len(outputs) == 1 {
		return outputs[0], nil
	}
	return tensors.Tensor{}, errors.Wrapf(postprocess.ErrShapeMismatch,
		"cannot pick the detection tensor from %d outputs", len(outputs))
}
