package detector

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models/labels"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/model/preprocess"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/tensors"
)

// Timings holds the wall time of each stage of one frame.
type Timings struct {
	TimePreProcess  time.Duration `json:"time_preprocess"  yaml:"time_preprocess"`
	TimeInference   time.Duration `json:"time_inference"   yaml:"time_inference"`
	TimePostProcess time.Duration `json:"time_postprocess" yaml:"time_postprocess"`
}

// Total returns the sum of the stage times.
func (t Timings) Total() time.Duration {
	return t.TimePreProcess + t.TimeInference + t.TimePostProcess
}

// Option configures a Detector or a Classifier.
type Option func(*options)

type options struct {
	labels   *labels.Table
	profiler *profiler.Profiler
}

// WithLabels uses the given table instead of resolving the configured label
// source.
func WithLabels(table *labels.Table) Option {
	return func(o *options) {
		o.labels = table
	}
}

// WithProfiler records stage timings into p. Without it every detector gets
// a private, unregistered profiler.
func WithProfiler(p *profiler.Profiler) Option {
	return func(o *options) {
		o.profiler = p
	}
}

// pipeline is the part shared by detection and classification: it owns the
// preprocessor and the engine and times the first two stages.
type pipeline struct {
	preprocessor *preprocess.Preprocessor
	engine       inference.Engine
	profiler     *profiler.Profiler
	logger       *zap.SugaredLogger
}

func newPipeline(cfg model.Config, engine inference.Engine, logger *zap.SugaredLogger, o options) (*pipeline, error) {
	if engine == nil {
		return nil, errors.Wrap(postprocess.ErrInvalidConfig, "engine is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pc := cfg.Preprocessing()
	if pc.InputWidth != cfg.Geometry.InputWidth || pc.InputHeight != cfg.Geometry.InputHeight {
		return nil, errors.Wrapf(postprocess.ErrInvalidConfig,
			"preprocess size %dx%d differs from model input %dx%d",
			pc.InputWidth, pc.InputHeight, cfg.Geometry.InputWidth, cfg.Geometry.InputHeight)
	}
	pre, err := preprocess.NewPreprocessor(pc)
	if err != nil {
		return nil, errors.Wrap(postprocess.ErrInvalidConfig, err.Error())
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	prof := o.profiler
	if prof == nil {
		prof = profiler.New(profiler.Options{})
	}

	return &pipeline{
		preprocessor: pre,
		engine:       engine,
		profiler:     prof,
		logger:       logger.With("model", string(cfg.Name)),
	}, nil
}

// infer preprocesses img and runs the engine on it. ctx is checked before
// the engine call and again after it, since the call itself cannot be
// interrupted.
func (p *pipeline) infer(ctx context.Context, img image.Image, t *Timings) ([]tensors.Tensor, image.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, image.Point{}, err
	}

	start := time.Now()
	in, err := p.preprocessor.PreprocessImage(img)
	if err != nil {
		p.profiler.RecordError(profiler.StagePreprocess)
		return nil, image.Point{}, errors.Wrap(err, "preprocess")
	}
	t.TimePreProcess = time.Since(start)
	p.profiler.Record(profiler.StagePreprocess, t.TimePreProcess)

	if err := ctx.Err(); err != nil {
		return nil, image.Point{}, err
	}

	start = time.Now()
	outputs, err := p.engine.Run(ctx, in.Data)
	if err != nil {
		p.profiler.RecordError(profiler.StageInference)
		return nil, image.Point{}, errors.Wrap(err, "inference")
	}
	t.TimeInference = time.Since(start)
	p.profiler.Record(profiler.StageInference, t.TimeInference)

	if err := ctx.Err(); err != nil {
		return nil, image.Point{}, err
	}
	return outputs, image.Pt(in.OriginalWidth, in.OriginalHeight), nil
}

// postprocess times fn as the post-processing stage.
func (p *pipeline) postprocess(t *Timings, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		p.profiler.RecordError(profiler.StagePostprocess)
		return errors.Wrap(err, "postprocess")
	}
	t.TimePostProcess = time.Since(start)
	p.profiler.Record(profiler.StagePostprocess, t.TimePostProcess)
	return nil
}

// warmup runs the engine on a blank input runs times.
func (p *pipeline) warmup(ctx context.Context, runs int) error {
	shape := p.preprocessor.Config().Shape()
	size := int64(1)
	for _, d := range shape {
		size *= d
	}
	input := make([]float32, size)

	start := time.Now()
	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.engine.Run(ctx, input); err != nil {
			return errors.Wrapf(err, "warmup run %d", i+1)
		}
	}
	p.logger.Debugw("warmup finished", "runs", runs, "elapsed", time.Since(start))
	return nil
}

func (p *pipeline) close() error {
	return p.engine.Close()
}
