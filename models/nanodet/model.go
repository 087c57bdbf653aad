// Package nanodet - NanoDet anchor-free detection model.
package nanodet

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/labels"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/tensors"
)

// StrideError reports a stride that could not be decoded.
type StrideError struct {
	Stride int
	Err    error
}

func (e *StrideError) Error() string {
	return fmt.Sprintf("stride %d: %v", e.Stride, e.Err)
}

func (e *StrideError) Unwrap() error {
	return e.Err
}

// Option configures a NanoDet decoder.
type Option func(*NanoDet)

// WithStrideErrorHandler receives every stride skipped because of
// DecodeOptions.SkipMismatchedStrides.
func WithStrideErrorHandler(fn func(*StrideError)) Option {
	return func(m *NanoDet) {
		m.onStrideError = fn
	}
}

// NanoDet decodes the per-stride class and distribution maps of NanoDet.
type NanoDet struct {
	config        model.Config
	labels        *labels.Table
	exp           ExpFunc
	onStrideError func(*StrideError)
}

// NewModel creates a new NanoDet decoder.
//
// Arguments:
//   - cfg: The model configuration.
//   - table: The label table, at least NumClasses long.
//   - opts: Optional behavior.
//
// Returns:
//   - The model.
//   - error: If the configuration or label table is unusable.
func NewModel(cfg model.Config, table *labels.Table, opts ...Option) (*NanoDet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errors.Wrap(postprocess.ErrInvalidConfig, "nanodet requires a label table")
	}
	if err := cfg.CheckLabels(table.Len()); err != nil {
		return nil, err
	}

	m := &NanoDet{
		config: cfg,
		labels: table,
		exp:    FastExp,
	}
	if cfg.Decode.ExactExp {
		m.exp = ExactExp
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the model configuration.
func (m *NanoDet) Config() model.Config {
	return m.config
}

// Decode decodes every stride, suppresses overlapping detections and maps
// the survivors to image space.
func (m *NanoDet) Decode(outputs []tensors.Tensor, imageWidth, imageHeight int) ([]postprocess.Detection, error) {
	g := m.config.Geometry

	var candidates []postprocess.Detection
	for i, stride := range g.Strides {
		dets, err := m.decodeStride(outputs, i, stride)
		if err != nil {
			strideErr := &StrideError{Stride: stride, Err: err}
			if m.config.Decode.SkipMismatchedStrides && errors.Is(err, postprocess.ErrShapeMismatch) {
				if m.onStrideError != nil {
					m.onStrideError(strideErr)
				}
				continue
			}
			return nil, strideErr
		}
		candidates = append(candidates, dets...)
	}

	results := postprocess.Suppress(candidates, g.NMS)
	if err := postprocess.RemapToImageSpace(results, g.InputWidth, g.InputHeight, imageWidth, imageHeight); err != nil {
		return nil, err
	}
	return results, nil
}

func (m *NanoDet) decodeStride(outputs []tensors.Tensor, i, stride int) ([]postprocess.Detection, error) {
	cls, dis, err := m.strideTensors(outputs, i)
	if err != nil {
		return nil, err
	}

	clsView, err := cls.Matrix(0)
	if err != nil {
		return nil, err
	}
	disView, err := dis.Matrix(0)
	if err != nil {
		return nil, err
	}

	return DecodeDistributionStride(clsView, disView, stride, m.config.Geometry, m.labels, m.exp)
}

// strideTensors returns the class and distribution tensors of the i-th
// stride, by configured name or else by position.
func (m *NanoDet) strideTensors(outputs []tensors.Tensor, i int) (tensors.Tensor, tensors.Tensor, error) {
	names := m.config.Outputs
	if len(names) == 2*len(m.config.Geometry.Strides) {
		cls, okCls := tensors.Find(outputs, names[2*i])
		dis, okDis := tensors.Find(outputs, names[2*i+1])
		if okCls && okDis {
			return cls, dis, nil
		}
	}

	if len(outputs) == 2*len(m.config.Geometry.Strides) {
		return outputs[2*i], outputs[2*i+1], nil
	}
	return tensors.Tensor{}, tensors.Tensor{}, errors.Wrapf(postprocess.ErrShapeMismatch,
		"cannot locate the tensors of stride index %d among %d outputs", i, len(outputs))
}
