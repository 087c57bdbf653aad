package postprocess

import "github.com/chewxy/math32"

// Box is an axis-aligned bounding box given by its top-left corner and size.
//
// Width and Height may be zero or negative for degenerate decoder output; such
// boxes are kept as-is and simply have a non-positive Area.
type Box struct {
	X      float32 `json:"x"      yaml:"x"`
	Y      float32 `json:"y"      yaml:"y"`
	Width  float32 `json:"width"  yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
}

// Area returns Width*Height.
func (b Box) Area() float32 {
	return b.Width * b.Height
}

// Right returns the x coordinate of the right edge.
func (b Box) Right() float32 {
	return b.X + b.Width
}

// Bottom returns the y coordinate of the bottom edge.
func (b Box) Bottom() float32 {
	return b.Y + b.Height
}

// CalculateIoU measures the overlap of two boxes as
//
//	IoU = Area of Intersection / Area of Union
//
// The intersection is the rectangle between the larger of the two top-left
// corners and the smaller of the two bottom-right corners. Disjoint boxes have
// an empty intersection and therefore an IoU of 0. A non-positive union (both
// boxes degenerate) also yields 0.
//
// Arguments:
//   - r: The first box.
//   - o: The second box.
//
// Returns:
//   - The IoU in [0, 1] for well-formed boxes.
func CalculateIoU(r, o Box) float32 {
	ix0 := math32.Max(r.X, o.X)
	iy0 := math32.Max(r.Y, o.Y)
	ix1 := math32.Min(r.Right(), o.Right())
	iy1 := math32.Min(r.Bottom(), o.Bottom())

	iw := ix1 - ix0
	ih := iy1 - iy0
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
