package main

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/report"
)

func classifyAction(c *cli.Context) (err error) {
	files, err := inputFiles(c.StringSlice(flagImage), "")
	if err != nil {
		return err
	}

	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, e.close()) }()

	engine, err := e.openEngine()
	if err != nil {
		return err
	}
	cls, err := detector.NewClassifier(e.cfg.Detector.Model, engine, e.logger, detector.WithProfiler(e.profiler))
	if err != nil {
		return multierr.Append(err, engine.Close())
	}
	defer func() { err = multierr.Append(err, cls.Close()) }()

	if runs := e.cfg.Detector.WarmupRuns; runs > 0 {
		if err := cls.Warmup(c.Context, runs); err != nil {
			return err
		}
	}

	run := report.NewRun(len(files))
	for i, f := range files {
		frame := report.Frame{Path: f.Path, Frame: f.Frame}

		img, _, err := images.Decode(f.Data)
		if err == nil {
			var res *detector.Classification
			if res, err = cls.Classify(c.Context, img, c.Int(flagTop)); err == nil {
				frame.Classes = res.Classes
				frame.Timings = res.Timings
			}
		}
		if err != nil {
			if c.Context.Err() != nil {
				return c.Context.Err()
			}
			e.logger.Warnw("image failed", "path", f.Path, "error", err)
			frame.Error = err.Error()
		}
		run.Set(i, frame)
	}

	if err := run.Write(c.App.Writer, e.format); err != nil {
		return err
	}
	if n := run.Failed(); n > 0 {
		return errors.Errorf("%d of %d images failed", n, len(files))
	}
	return nil
}
