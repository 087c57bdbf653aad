// Package annotate - Draws detections onto frames with OpenCV.
package annotate

import (
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Draw draws a box and a caption for every detection onto mat.
func Draw(mat *gocv.Mat, dets []postprocess.Detection) {
	bounds := image.Rect(0, 0, mat.Cols(), mat.Rows())
	for _, d := range dets {
		r := images.Rect(d.Box, bounds)
		if r.Empty() {
			continue
		}
		c := images.ClassColor(d.ClassID)
		gocv.Rectangle(mat, r, c, 2)

		origin := image.Pt(r.Min.X, r.Min.Y-4)
		if origin.Y < 12 {
			origin.Y = r.Min.Y + 12
		}
		gocv.PutText(mat, images.Caption(d), origin, gocv.FontHersheyPlain, 0.9, c, 1)
	}
}

// WriteFile decodes an encoded frame, draws the detections onto it and
// writes the result to path. The output format follows the extension of
// path.
//
// Arguments:
//   - path: The output file.
//   - data: The encoded source frame.
//   - dets: Detections in the frame's pixel space.
//
// Returns:
//   - error: If the frame cannot be decoded or the file cannot be written.
func WriteFile(path string, data []byte, dets []postprocess.Detection) error {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return errors.Wrap(err, "error decoding frame")
	}
	defer mat.Close()
	if mat.Empty() {
		return errors.New("decoded frame is empty")
	}

	Draw(&mat, dets)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "error creating %s", filepath.Dir(path))
	}
	if !gocv.IMWrite(path, mat) {
		return errors.Errorf("error writing %s", path)
	}
	return nil
}
