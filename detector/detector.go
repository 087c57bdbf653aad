// Package detector - Owned detection and classification pipelines.
package detector

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/labels"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/nanodet"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/profiler"
)

// Config represents the configuration of a detector.
type Config struct {
	// Model is the model, its geometry and its label source.
	Model model.Config `json:"model" yaml:"model"`
	// RelevantClasses lists the labels to report (empty = all classes).
	RelevantClasses []string `json:"relevant_classes" yaml:"relevant_classes"`
	// WarmupRuns is the number of blank frames run by Warmup.
	WarmupRuns int `json:"warmup_runs" yaml:"warmup_runs"`
}

// DefaultConfig returns the preset of a known model with every class relevant.
//
// @example
// config, err := DefaultConfig(model.ModelNameNanoDet)
// config.Model.Path = "models/nanodet_m.onnx"
func DefaultConfig(name model.Name) (Config, error) {
	m, err := model.DefaultConfig(name)
	if err != nil {
		return Config{}, err
	}
	return Config{Model: m, WarmupRuns: 1}, nil
}

// Result is the outcome of one detection call.
type Result struct {
	// Detections in image space, in decoder order.
	Detections []postprocess.Detection `json:"detections" yaml:"detections"`
	Timings
}

// Detector turns images into detections. It holds no per-frame state, so
// Detect is safe for concurrent use whenever the engine is.
type Detector struct {
	*pipeline
	config   Config
	labels   *labels.Table
	decoder  model.Decoder
	relevant map[int]struct{}
}

// New creates a new detector.
//
// Configuration problems are reported here rather than on the first frame:
// the geometry, the label table and the relevant classes are all checked.
//
// Arguments:
//   - cfg: The detector configuration.
//   - engine: The inference engine; the detector owns it from now on.
//   - logger: The logger, or nil to discard logs.
//   - opts: Optional label table and profiler.
//
// Returns:
//   - *Detector: The detector.
//   - error: An error wrapping postprocess.ErrInvalidConfig when unusable.
func New(cfg Config, engine inference.Engine, logger *zap.SugaredLogger, opts ...Option) (*Detector, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Model.Name.Task() != model.TaskDetection {
		return nil, errors.Wrapf(postprocess.ErrInvalidConfig, "model %q is not a detector", cfg.Model.Name)
	}

	p, err := newPipeline(cfg.Model, engine, logger, o)
	if err != nil {
		return nil, err
	}

	table := o.labels
	if table == nil {
		if table, err = models.LoadLabels(cfg.Model); err != nil {
			return nil, err
		}
	}

	decoder, err := models.NewDecoder(cfg.Model, table, nanodet.WithStrideErrorHandler(func(e *nanodet.StrideError) {
		p.logger.Warnw("skipping stride", "stride", e.Stride, "error", e.Err)
	}))
	if err != nil {
		return nil, err
	}

	relevant, err := classFilter(table, cfg.RelevantClasses)
	if err != nil {
		return nil, err
	}

	p.logger.Infow("detector ready",
		"input_width", cfg.Model.Geometry.InputWidth,
		"input_height", cfg.Model.Geometry.InputHeight,
		"classes", table.Len(),
		"confidence_threshold", cfg.Model.Geometry.ConfidenceThreshold,
		"relevant_classes", len(relevant),
	)

	return &Detector{
		pipeline: p,
		config:   cfg,
		labels:   table,
		decoder:  decoder,
		relevant: relevant,
	}, nil
}

func classFilter(table *labels.Table, names []string) (map[int]struct{}, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ids := make(map[int]struct{}, len(names))
	for _, name := range names {
		id, ok := table.IndexOf(name)
		if !ok {
			return nil, errors.Wrapf(postprocess.ErrInvalidConfig, "relevant class %q is not in the label table", name)
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.config
}

// Labels returns the label table.
func (d *Detector) Labels() *labels.Table {
	return d.labels
}

// Profiler returns the profiler the stage timings are recorded into.
func (d *Detector) Profiler() *profiler.Profiler {
	return d.profiler
}

// Detect runs the full pipeline on one image.
//
// Arguments:
//   - ctx: Checked before and after the engine call.
//   - img: The image, of any size.
//
// Returns:
//   - *Result: Every detection above the threshold, in image space. An
//     empty set is not an error.
//   - error: A context, preprocessing, engine or decoding error.
func (d *Detector) Detect(ctx context.Context, img image.Image) (*Result, error) {
	r := &Result{}

	outputs, size, err := d.infer(ctx, img, &r.Timings)
	if err != nil {
		return nil, err
	}

	err = d.postprocess(&r.Timings, func() error {
		dets, err := d.decoder.Decode(outputs, size.X, size.Y)
		if err != nil {
			return err
		}
		r.Detections = d.filter(dets)
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.Debugw("frame decoded",
		"detections", len(r.Detections),
		"preprocess", r.TimePreProcess,
		"inference", r.TimeInference,
		"postprocess", r.TimePostProcess,
	)
	return r, nil
}

func (d *Detector) filter(dets []postprocess.Detection) []postprocess.Detection {
	if d.relevant == nil {
		return dets
	}
	kept := dets[:0]
	for _, det := range dets {
		if _, ok := d.relevant[det.ClassID]; ok {
			kept = append(kept, det)
		}
	}
	return kept
}

// Warmup runs the engine on blank input, runs times, so the first real frame
// does not pay for lazy allocations. runs < 1 uses Config.WarmupRuns.
func (d *Detector) Warmup(ctx context.Context, runs int) error {
	if runs < 1 {
		runs = d.config.WarmupRuns
	}
	return d.warmup(ctx, runs)
}

// Close releases the engine.
func (d *Detector) Close() error {
	return d.close()
}
