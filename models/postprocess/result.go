// Package postprocess - Postprocessing utilities shared by every model decoder.
package postprocess

// Detection represents a single detected object.
type Detection struct {
	// The predicted class index, always a valid index into the label table.
	ClassID int `json:"class_id" yaml:"class_id"`
	// The human-readable label of ClassID.
	Label string `json:"label" yaml:"label"`
	// The confidence score of the detection.
	Score float32 `json:"score" yaml:"score"`
	// The bounding box, in model-input or image space depending on the stage.
	Box Box `json:"box" yaml:"box"`
}

// Classification is a single scored class of a classification model.
type Classification struct {
	ClassID int     `json:"class_id" yaml:"class_id"`
	Label   string  `json:"label"    yaml:"label"`
	Score   float32 `json:"score"    yaml:"score"`
}
