// Package mobilenet - MobileNetV2 image classification model.
package mobilenet

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/labels"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Classify ranks a score vector and returns the k best classes, best first.
// Equal scores keep the lower class id first, so k=1 returns the first
// maximum of the vector.
//
// Arguments:
//   - scores: One score per class.
//   - table: The label table, or nil to leave labels empty.
//   - k: How many classes to return. Values below one return the top class.
//   - applySoftmax: Whether scores are logits that need normalizing.
//
// Returns:
//   - []postprocess.Classification: At most k classes.
//   - error: If a returned class id has no label.
func Classify(scores []float32, table *labels.Table, k int, applySoftmax bool) ([]postprocess.Classification, error) {
	if len(scores) == 0 {
		return nil, nil
	}
	if k < 1 {
		k = 1
	}
	if k > len(scores) {
		k = len(scores)
	}

	values := scores
	if applySoftmax {
		values = Softmax(scores)
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	results := make([]postprocess.Classification, 0, k)
	for _, id := range order[:k] {
		c := postprocess.Classification{ClassID: id, Score: values[id]}
		if table != nil {
			name, err := table.Lookup(id)
			if err != nil {
				return nil, errors.Wrapf(err, "rank %d", len(results))
			}
			c.Label = name
		}
		results = append(results, c)
	}

	return results, nil
}

// Softmax returns the normalized exponentials of logits.
func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}

	alpha := logits[0]
	for _, v := range logits[1:] {
		alpha = math32.Max(alpha, v)
	}

	var sum float32
	for i, v := range logits {
		out[i] = math32.Exp(v - alpha)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
