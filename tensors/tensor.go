// Package tensors - Named output tensors and typed, bounds-checked views over them.
package tensors

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Tensor is a named float32 tensor produced by an inference engine.
// Data is laid out row-major according to Shape.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float32
}

// Size returns the product of the shape dimensions.
func (t Tensor) Size() int {
	if len(t.Shape) == 0 {
		return 0
	}
	size := 1
	for _, d := range t.Shape {
		size *= d
	}
	return size
}

// Matrix interprets the tensor as a 2-D [rows, cols] view. Leading singleton
// dimensions are squeezed, so [1, N, 6] and [N, 6] are equivalent. A 1-D
// tensor becomes a single row. When cols is positive the last dimension must
// equal it.
//
// Arguments:
//   - cols: The expected row width, or 0 to accept any width.
//
// Returns:
//   - *View: The 2-D view.
//   - error: ErrShapeMismatch if the shape cannot be read as the requested matrix.
func (t Tensor) Matrix(cols int) (*View, error) {
	if t.Size() != len(t.Data) {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch,
			"tensor %q: shape %v describes %d values, backing has %d", t.Name, t.Shape, t.Size(), len(t.Data))
	}

	shape := squeeze(t.Shape)
	var rows, width int
	switch len(shape) {
	case 0:
		rows, width = 1, 1
	case 1:
		rows, width = 1, shape[0]
	case 2:
		rows, width = shape[0], shape[1]
	default:
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch,
			"tensor %q: shape %v is not two-dimensional", t.Name, t.Shape)
	}

	if cols > 0 && width != cols {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch,
			"tensor %q: expected %d columns, got shape %v", t.Name, cols, t.Shape)
	}

	v, err := NewView(t.Data, rows, width)
	if err != nil {
		return nil, errors.Wrapf(err, "tensor %q", t.Name)
	}
	return v, nil
}

// Find returns the tensor called name.
func Find(outputs []Tensor, name string) (Tensor, bool) {
	for _, t := range outputs {
		if t.Name == name {
			return t, true
		}
	}
	return Tensor{}, false
}

func squeeze(shape []int) []int {
	for len(shape) > 2 && shape[0] == 1 {
		shape = shape[1:]
	}
	return shape
}
