package postprocess

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig is returned when geometry, thresholds or dimensions are unusable.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrShapeMismatch is returned when a tensor's shape does not match the model geometry.
	ErrShapeMismatch = errors.New("tensor shape mismatch")
	// ErrClassOutOfRange is returned when a class id has no entry in the label table.
	ErrClassOutOfRange = errors.New("class id out of range")
)
