// Package motion - Background-subtraction motion gating for video streams.
//
// A Gate decides per frame whether anything moved, so a stream can skip the
// detector on static frames:
//
//	frame -> MOG2 foreground mask -> binary threshold -> dilate -> contours
//
// A Gate is stateful (the background model learns from every frame it sees)
// and holds native OpenCV memory; call Close when done.
package motion

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Options tunes the gate.
type Options struct {
	// MinArea is the contour area in pixels that counts as motion.
	MinArea float64
	// Threshold is the foreground mask intensity treated as moving (default: 25).
	Threshold float32
	// DilateSize is the side of the square dilation kernel (default: 3).
	DilateSize int
}

// Gate encapsulates the motion segmentation pipeline.
type Gate struct {
	opts       Options
	delta      gocv.Mat
	threshold  gocv.Mat
	kernel     gocv.Mat
	background gocv.BackgroundSubtractorMOG2
}

// NewGate creates a gate with a fresh background model.
func NewGate(opts Options) (*Gate, error) {
	if opts.MinArea <= 0 {
		return nil, errors.Errorf("motion min area must be positive, got %v", opts.MinArea)
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 25
	}
	if opts.DilateSize <= 0 {
		opts.DilateSize = 3
	}

	return &Gate{
		opts:       opts,
		delta:      gocv.NewMat(),
		threshold:  gocv.NewMat(),
		kernel:     gocv.GetStructuringElement(gocv.MorphRect, image.Pt(opts.DilateSize, opts.DilateSize)),
		background: gocv.NewBackgroundSubtractorMOG2(),
	}, nil
}

// Regions feeds frame to the background model and returns the bounding
// rectangles of the moving blobs of at least MinArea pixels.
func (g *Gate) Regions(frame gocv.Mat) ([]image.Rectangle, error) {
	if frame.Empty() {
		return nil, errors.New("frame is empty")
	}
	if err := g.background.Apply(frame, &g.delta); err != nil {
		return nil, errors.Wrap(err, "background subtraction")
	}
	gocv.Threshold(g.delta, &g.threshold, g.opts.Threshold, 255, gocv.ThresholdBinary)
	if err := gocv.Dilate(g.threshold, &g.threshold, g.kernel); err != nil {
		return nil, errors.Wrap(err, "dilate")
	}

	contours := gocv.FindContours(g.threshold, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if gocv.ContourArea(c) >= g.opts.MinArea {
			regions = append(regions, gocv.BoundingRect(c))
		}
	}
	return regions, nil
}

// Moving reports whether frame contains motion.
func (g *Gate) Moving(frame gocv.Mat) (bool, error) {
	regions, err := g.Regions(frame)
	return len(regions) > 0, err
}

// Close releases the native resources.
func (g *Gate) Close() error {
	return errors.Wrap(closeAll(&g.delta, &g.threshold, &g.kernel, &g.background), "error closing motion gate")
}

type closer interface{ Close() error }

func closeAll(cs ...closer) error {
	var first error
	for _, c := range cs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
