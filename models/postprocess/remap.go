package postprocess

import "github.com/pkg/errors"

// RemapToImageSpace rescales detections in place from model-input coordinates
// to original image coordinates. X and Width scale by originalWidth/modelWidth,
// Y and Height by originalHeight/modelHeight. Results are not clamped to the
// image bounds.
//
// Arguments:
//   - detections: Detections to rescale in place.
//   - modelWidth, modelHeight: Model input dimensions.
//   - originalWidth, originalHeight: Source image dimensions.
//
// Returns:
//   - ErrInvalidConfig if either model dimension is not positive.
func RemapToImageSpace(detections []Detection, modelWidth, modelHeight, originalWidth, originalHeight int) error {
	if modelWidth <= 0 || modelHeight <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "model dimensions must be positive, got %dx%d", modelWidth, modelHeight)
	}

	Scale(
		detections,
		float32(originalWidth)/float32(modelWidth),
		float32(originalHeight)/float32(modelHeight),
	)
	return nil
}

// Scale multiplies X and Width by sx, and Y and Height by sy, in place.
func Scale(detections []Detection, sx, sy float32) {
	for i := range detections {
		b := &detections[i].Box
		b.X *= sx
		b.Width *= sx
		b.Y *= sy
		b.Height *= sy
	}
}
