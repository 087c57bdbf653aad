package mobilenet

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/labels"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/tensors"
)

// MobileNet ranks the probability vector of a MobileNetV2 classifier.
type MobileNet struct {
	config model.Config
	labels *labels.Table
}

// NewModel creates a new classifier.
//
// Arguments:
//   - cfg: The model configuration.
//   - table: The label table, or nil to report class ids only.
//
// Returns:
//   - The model.
//   - error: If the configuration is unusable or the table is too short.
func NewModel(cfg model.Config, table *labels.Table) (*MobileNet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table != nil {
		if err := cfg.CheckLabels(table.Len()); err != nil {
			return nil, err
		}
	}
	return &MobileNet{config: cfg, labels: table}, nil
}

// Config returns the model configuration.
func (m *MobileNet) Config() model.Config {
	return m.config
}

// Classify returns the k best classes of one frame.
func (m *MobileNet) Classify(outputs []tensors.Tensor, k int) ([]postprocess.Classification, error) {
	var output tensors.Tensor
	switch {
	case len(m.config.Outputs) > 0 && hasOutput(outputs, m.config.Outputs[0]):
		output, _ = tensors.Find(outputs, m.config.Outputs[0])
	case len(outputs) == 1:
		output = outputs[0]
	default:
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch,
			"cannot pick the probability tensor from %d outputs", len(outputs))
	}

	scores := output.Data
	if n := m.config.Geometry.NumClasses; n > 0 && len(scores) != n {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch,
			"tensor %q has %d scores, model has %d classes", output.Name, len(scores), n)
	}

	return Classify(scores, m.labels, k, m.config.Decode.Softmax)
}

func hasOutput(outputs []tensors.Tensor, name string) bool {
	_, ok := tensors.Find(outputs, name)
	return ok
}
