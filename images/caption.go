package images

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Rect converts a detection box to integer pixel coordinates clipped to
// bounds. Boxes with non-positive area come back empty.
func Rect(b postprocess.Box, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(math32.Floor(b.X)),
		int(math32.Floor(b.Y)),
		int(math32.Ceil(b.Right())),
		int(math32.Ceil(b.Bottom())),
	)
	if b.Width <= 0 || b.Height <= 0 {
		return image.Rectangle{}
	}
	return r.Intersect(bounds)
}

// Caption is the text drawn next to a detection.
func Caption(d postprocess.Detection) string {
	name := d.Label
	if name == "" {
		name = fmt.Sprintf("class %d", d.ClassID)
	}
	return fmt.Sprintf("%s %.2f", name, d.Score)
}

var palette = []color.RGBA{
	{0, 255, 0, 0},
	{0, 0, 255, 0},
	{255, 0, 0, 0},
	{0, 255, 255, 0},
	{255, 0, 255, 0},
	{255, 255, 0, 0},
}

// ClassColor returns a stable drawing color for a class id.
func ClassColor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}
