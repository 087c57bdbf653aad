// Package ssd - postprocess SSD direct-box model outputs.
package ssd

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/labels"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/tensors"
)

// RowSize is the width of a direct-box row: class, score, x0, y0, x1, y1.
const RowSize = 6

// ImageSize scales normalized coordinates to pixels.
type ImageSize struct {
	Width  int
	Height int
}

// DecodeDirectBoxes decodes rows of [classId, score, x0, y0, x1, y1] with
// coordinates normalized to [0, 1].
//
// Rows scoring at or below threshold are skipped. The top-left corner is
// clamped at zero and the bottom-right at one, but width and height are
// measured from the unclamped corner, so a row with a negative x0 keeps the
// extra width. Negative sizes are passed through. When scale is non-nil, x
// and width are multiplied by the image width and y and height by the image
// height. Rows are emitted in tensor order with no suppression.
//
// Arguments:
//   - output: A [numCandidates, 6] view.
//   - threshold: Exclusive lower bound on scores.
//   - table: Labels for the class column.
//   - scale: Optional image size for pixel output.
//
// Returns:
//   - The decoded detections.
//   - error: ErrShapeMismatch for a wrong row width, ErrClassOutOfRange for an
//     unknown class id.
func DecodeDirectBoxes(output *tensors.View, threshold float32, table *labels.Table, scale *ImageSize) ([]postprocess.Detection, error) {
	if output.Cols() != RowSize {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch, "direct-box rows need %d values, got %d", RowSize, output.Cols())
	}

	results := make([]postprocess.Detection, 0, output.Rows())
	for i := 0; i < output.Rows(); i++ {
		row, err := output.Row(i)
		if err != nil {
			return nil, err
		}

		score := row[1]
		if !(score > threshold) {
			continue
		}

		classID := int(row[0])
		label, err := table.Lookup(classID)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}

		x0, y0, x1, y1 := row[2], row[3], row[4], row[5]
		box := postprocess.Box{
			X:      math32.Max(x0, 0),
			Y:      math32.Max(y0, 0),
			Width:  math32.Min(x1, 1) - x0,
			Height: math32.Min(y1, 1) - y0,
		}
		if scale != nil {
			w, h := float32(scale.Width), float32(scale.Height)
			box.X *= w
			box.Width *= w
			box.Y *= h
			box.Height *= h
		}

		results = append(results, postprocess.Detection{
			ClassID: classID,
			Label:   label,
			Score:   score,
			Box:     box,
		})
	}

	return results, nil
}
