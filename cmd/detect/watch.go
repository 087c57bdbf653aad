package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images/annotate"
	"github.com/nvr-ai/go-detect/images/motion"
)

// watchAction runs the detector on every frame of a capture device or a
// video file until the stream ends, the frame limit is hit or the command
// is interrupted.
func watchAction(c *cli.Context) (err error) {
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

	source := c.String(flagSource)
	var device interface{} = source
	if id, convErr := strconv.Atoi(source); convErr == nil {
		device = id
	}
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return errors.Wrapf(err, "error opening %s", source)
	}
	defer capture.Close()

	var window *gocv.Window
	if c.Bool(flagShow) {
		window = gocv.NewWindow("detect")
		defer window.Close()
	}

	out := c.String(flagOut)
	if out != "" {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return errors.Wrapf(err, "error creating %s", out)
		}
	}

	var gate *motion.Gate
	if area := c.Float64(flagMotionArea); area > 0 {
		if gate, err = motion.NewGate(motion.Options{MinArea: area}); err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, gate.Close()) }()
	}

	img := gocv.NewMat()
	defer img.Close()

	limit := c.Int(flagFrames)
	e.logger.Infow("watching", "source", source, "frames", limit)

	for n := 1; limit <= 0 || n <= limit; n++ {
		if err := c.Context.Err(); err != nil {
			e.logger.Infow("stopped", "frames", n-1)
			return nil
		}
		if ok := capture.Read(&img); !ok {
			e.logger.Infow("stream ended", "frames", n-1)
			return nil
		}
		if img.Empty() {
			continue
		}
		if gate != nil {
			moving, err := gate.Moving(img)
			if err != nil {
				return err
			}
			if !moving {
				continue
			}
		}

		frame, err := img.ToImage()
		if err != nil {
			return errors.Wrap(err, "error converting frame")
		}
		res, err := det.Detect(c.Context, frame)
		if err != nil {
			if c.Context.Err() != nil {
				continue
			}
			return err
		}
		if len(res.Detections) == 0 {
			continue
		}

		e.logger.Infow("objects detected", "frame", n, "count", len(res.Detections), "first", res.Detections[0].Label)
		annotate.Draw(&img, res.Detections)
		if window != nil {
			window.IMShow(img)
			window.WaitKey(1)
		}
		if out != "" {
			path := filepath.Join(out, fmt.Sprintf("frame-%d.jpg", n))
			if !gocv.IMWrite(path, img) {
				e.logger.Warnw("error writing frame", "path", path)
			}
		}
	}
	return nil
}
