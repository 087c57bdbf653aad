package detector

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Classification is the outcome of one classification call.
type Classification struct {
	// Classes holds the best classes, best first.
	Classes []postprocess.Classification `json:"classes" yaml:"classes"`
	Timings
}

// Classifier ranks whole images against a classification model.
type Classifier struct {
	*pipeline
	classifier model.Classifier
}

// NewClassifier creates a new classifier. A classifier without a label source
// reports class ids with empty labels.
func NewClassifier(cfg model.Config, engine inference.Engine, logger *zap.SugaredLogger, opts ...Option) (*Classifier, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Name.Task() != model.TaskClassification {
		return nil, errors.Wrapf(postprocess.ErrInvalidConfig, "model %q is not a classifier", cfg.Name)
	}

	p, err := newPipeline(cfg, engine, logger, o)
	if err != nil {
		return nil, err
	}

	table := o.labels
	if table == nil {
		if table, err = models.LoadLabels(cfg); err != nil {
			return nil, err
		}
	}

	c, err := models.NewClassifier(cfg, table)
	if err != nil {
		return nil, err
	}

	p.logger.Infow("classifier ready", "classes", cfg.Geometry.NumClasses, "labelled", table != nil)
	return &Classifier{pipeline: p, classifier: c}, nil
}

// Classify returns the k best classes of img.
func (c *Classifier) Classify(ctx context.Context, img image.Image, k int) (*Classification, error) {
	r := &Classification{}

	outputs, _, err := c.infer(ctx, img, &r.Timings)
	if err != nil {
		return nil, err
	}

	err = c.postprocess(&r.Timings, func() error {
		classes, err := c.classifier.Classify(outputs, k)
		r.Classes = classes
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Warmup runs the engine on blank input, runs times.
func (c *Classifier) Warmup(ctx context.Context, runs int) error {
	return c.warmup(ctx, runs)
}

// Close releases the engine.
func (c *Classifier) Close() error {
	return c.close()
}
