package images

import "github.com/nvr-ai/go-detect/models/postprocess"

// Truncate returns at most max detections, keeping decoder order. max <= 0
// keeps everything. Detectors always return the full list; only presentation
// code cuts it down.
func Truncate(dets []postprocess.Detection, max int) []postprocess.Detection {
	if max <= 0 || len(dets) <= max {
		return dets
	}
	return dets[:max]
}
