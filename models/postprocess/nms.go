// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import "sort"

// DefaultIoUThreshold is the overlap above which two same-class detections are grouped.
const DefaultIoUThreshold float32 = 0.5

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold  float32 `json:"iou_threshold"  yaml:"iou_threshold"`  // Overlap threshold for grouping. Zero means DefaultIoUThreshold.
	WeightedMerge bool    `json:"weighted_merge" yaml:"weighted_merge"` // If true, replace each group by its score-weighted average.
}

// DefaultNMSConfig returns plain classwise suppression at DefaultIoUThreshold.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{IoUThreshold: DefaultIoUThreshold}
}

func (c NMSConfig) threshold() float32 {
	if c.IoUThreshold <= 0 {
		return DefaultIoUThreshold
	}
	return c.IoUThreshold
}

// Suppress performs classwise greedy Non-Maximum Suppression.
//
// Detections are ordered by box area, largest first (stable for equal areas),
// not by score. Each detection not yet merged becomes an anchor and collects
// every later unmerged detection of the same class whose IoU with the anchor
// exceeds the threshold. In plain mode the anchor survives and the rest of its
// group is dropped. In weighted mode groups of fewer than two detections are
// dropped entirely, and larger groups are replaced by one detection whose
// score is the mean group score and whose box is the score-weighted average
// of the group's boxes.
//
// The input slice is left untouched.
//
// Arguments:
//   - detections: Detections of a single frame, in any order.
//   - config: Suppression parameters.
//
// Returns:
//   - Surviving detections in the order their groups were formed. Nil if no
//     detections are provided.
func Suppress(detections []Detection, config NMSConfig) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := make([]Detection, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.Area() > sorted[j].Box.Area()
	})

	threshold := config.threshold()
	merged := make([]bool, n)
	filtered := make([]Detection, 0, n)
	group := make([]Detection, 0, n)

	for i := 0; i < n; i++ {
		if merged[i] {
			continue
		}

		anchor := sorted[i]
		merged[i] = true
		group = append(group[:0], anchor)

		for j := i + 1; j < n; j++ {
			if merged[j] || sorted[j].ClassID != anchor.ClassID {
				continue
			}
			if CalculateIoU(anchor.Box, sorted[j].Box) > threshold {
				merged[j] = true
				group = append(group, sorted[j])
			}
		}

		if !config.WeightedMerge {
			filtered = append(filtered, anchor)
			continue
		}

		if len(group) < 2 {
			continue
		}
		filtered = append(filtered, mergeGroup(group))
	}

	return filtered
}

// mergeGroup collapses a group into its score-weighted average box.
// Class and label are taken from the anchor, which is always group[0].
func mergeGroup(group []Detection) Detection {
	out := Detection{
		ClassID: group[0].ClassID,
		Label:   group[0].Label,
	}

	var total float32
	for _, d := range group {
		total += d.Score
		out.Box.X += d.Box.X * d.Score
		out.Box.Y += d.Box.Y * d.Score
		out.Box.Width += d.Box.Width * d.Score
		out.Box.Height += d.Box.Height * d.Score
	}

	out.Score = total / float32(len(group))
	if total != 0 {
		out.Box.X /= total
		out.Box.Y /= total
		out.Box.Width /= total
		out.Box.Height /= total
	}
	return out
}
