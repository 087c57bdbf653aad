package main

import (
	"image"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/nvr-ai/go-detect/benchmark"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
)

func benchAction(c *cli.Context) (err error) {
	files, err := inputFiles(c.StringSlice(flagImage), c.String(flagDir))
	if err != nil {
		return err
	}
	corpus := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, _, err := images.Decode(f.Data)
		if err != nil {
			return errors.Wrap(err, f.Path)
		}
		corpus = append(corpus, img)
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
	det, err := detector.New(e.cfg.Detector, engine, e.logger, detector.WithProfiler(e.profiler))
	if err != nil {
		return multierr.Append(err, engine.Close())
	}
	defer func() { err = multierr.Append(err, det.Close()) }()

	suite, err := benchmark.NewSuite(det, corpus, e.logger)
	if err != nil {
		return err
	}

	scenario := benchmark.Scenario{
		Name:       string(e.cfg.Detector.Model.Name),
		Iterations: c.Int(flagIterations),
		WarmupRuns: e.cfg.Detector.WarmupRuns,
		Workers:    c.Int(flagWorkers),
	}
	if _, err := suite.RunScenario(c.Context, scenario); err != nil {
		return err
	}

	if out := c.String(flagOut); out != "" {
		resultsFile, summaryFile, err := suite.SaveResults(out)
		if err != nil {
			return err
		}
		e.logger.Infow("results saved", "results", resultsFile, "summary", summaryFile)
	}
	return nil
}
