package tensors

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// View is a read-only [rows, cols] matrix backed by a dense tensor that
// shares the caller's float32 slice. Every accessor is bounds-checked.
type View struct {
	dense *tensor.Dense
	rows  int
	cols  int
}

// NewView wraps data as a rows x cols matrix without copying it.
func NewView(data []float32, rows, cols int) (*View, error) {
	if rows < 0 || cols <= 0 {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch, "invalid view shape [%d, %d]", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch,
			"view shape [%d, %d] needs %d values, got %d", rows, cols, rows*cols, len(data))
	}

	v := &View{rows: rows, cols: cols}
	if rows > 0 {
		v.dense = tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))
	}
	return v, nil
}

// Rows returns the number of rows.
func (v *View) Rows() int { return v.rows }

// Cols returns the number of columns.
func (v *View) Cols() int { return v.cols }

// Shape returns [rows, cols].
func (v *View) Shape() []int { return []int{v.rows, v.cols} }

// Dense exposes the underlying dense tensor, nil for an empty view.
func (v *View) Dense() *tensor.Dense { return v.dense }

// At returns the element at (row, col).
func (v *View) At(row, col int) (float32, error) {
	if err := v.check(row, col, 1); err != nil {
		return 0, err
	}
	val, err := v.dense.At(row, col)
	if err != nil {
		return 0, errors.Wrapf(postprocess.ErrShapeMismatch, "at (%d, %d): %v", row, col, err)
	}
	f, ok := val.(float32)
	if !ok {
		return 0, errors.Errorf("unexpected element type %T", val)
	}
	return f, nil
}

// Row returns row as a slice sharing the view's backing storage.
func (v *View) Row(row int) ([]float32, error) {
	return v.Slice(row, 0, v.cols)
}

// Slice returns n consecutive elements of row starting at col. The row is
// taken from the dense tensor, so the result shares its backing storage.
func (v *View) Slice(row, col, n int) ([]float32, error) {
	if err := v.check(row, col, n); err != nil {
		return nil, err
	}
	r, err := v.dense.Slice(tensor.S(row))
	if err != nil {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch, "row %d: %v", row, err)
	}

	var values []float32
	switch d := r.Data().(type) {
	case []float32:
		values = d
	case float32:
		// a single-column row comes back as a scalar view
		values = []float32{d}
	default:
		return nil, errors.Errorf("unexpected row type %T", d)
	}
	if len(values) < col+n {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch, "row %d has %d values, need %d", row, len(values), col+n)
	}
	return values[col : col+n : col+n], nil
}

func (v *View) check(row, col, n int) error {
	if row < 0 || row >= v.rows || col < 0 || n < 0 || col+n > v.cols {
		return errors.Wrapf(postprocess.ErrShapeMismatch,
			"access row %d cols [%d, %d) outside view [%d, %d]", row, col, col+n, v.rows, v.cols)
	}
	return nil
}
