package main

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/images/annotate"
	"github.com/nvr-ai/go-detect/report"
	"github.com/nvr-ai/go-detect/util"
)

func detectAction(c *cli.Context) (err error) {
	files, err := inputFiles(c.StringSlice(flagImage), c.String(flagDir))
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
	det, err := detector.New(e.cfg.Detector, engine, e.logger, detector.WithProfiler(e.profiler))
	if err != nil {
		return multierr.Append(err, engine.Close())
	}
	defer func() { err = multierr.Append(err, det.Close()) }()

	if runs := e.cfg.Detector.WarmupRuns; runs > 0 {
		if err := det.Warmup(c.Context, runs); err != nil {
			return err
		}
	}

	run := report.NewRun(len(files))
	e.logger.Infow("detecting", "run_id", run.ID, "frames", len(files), "workers", c.Int(flagWorkers))

	job := detectJob{
		detector:   det,
		out:        c.String(flagOut),
		maxResults: c.Int(flagMaxResults),
	}

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(max(1, c.Int(flagWorkers)))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			frame, err := job.process(ctx, f)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Warnw("frame failed", "path", f.Path, "error", err)
				frame.Error = err.Error()
			}
			run.Set(i, frame)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := run.Write(c.App.Writer, e.format); err != nil {
		return err
	}
	if n := run.Failed(); n > 0 {
		return errors.Errorf("%d of %d frames failed", n, len(files))
	}
	return nil
}

// inputFiles loads the named images and, if dir is set, every image in it.
func inputFiles(paths []string, dir string) ([]util.ImageFile, error) {
	if len(paths) == 0 && dir == "" {
		return nil, errors.Errorf("one of --%s or --%s is required", flagImage, flagDir)
	}

	var files []util.ImageFile
	for _, p := range paths {
		f, err := util.LoadImageFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if dir != "" {
		more, err := util.LoadDirectoryImageFiles(dir)
		if err != nil {
			return nil, err
		}
		if len(more) == 0 {
			return nil, errors.Errorf("no images in %s", dir)
		}
		files = append(files, more...)
	}
	return files, nil
}

type detectJob struct {
	detector   *detector.Detector
	out        string
	maxResults int
}

// process decodes, detects and optionally annotates one frame. The frame is
// filled in as far as it got, even on error.
func (j detectJob) process(ctx context.Context, f util.ImageFile) (report.Frame, error) {
	frame := report.Frame{Path: f.Path, Frame: f.Frame}

	img, _, err := images.Decode(f.Data)
	if err != nil {
		return frame, err
	}

	res, err := j.detector.Detect(ctx, img)
	if err != nil {
		return frame, err
	}
	frame.Timings = res.Timings
	frame.Detections = images.Truncate(res.Detections, j.maxResults)

	if j.out != "" {
		out := filepath.Join(j.out, "detected_"+filepath.Base(f.Path))
		if err := annotate.WriteFile(out, f.Data, frame.Detections); err != nil {
			return frame, err
		}
	}
	return frame, nil
}
