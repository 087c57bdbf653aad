// Package main is the detect command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagConfig      = "config"
	flagLogLevel    = "log-level"
	flagImage       = "image"
	flagDir         = "dir"
	flagOut         = "out"
	flagMaxResults  = "max-results"
	flagTop         = "top"
	flagWorkers     = "workers"
	flagMetricsAddr = "metrics-addr"
	flagFormat      = "format"
	flagWarmup      = "warmup"
	flagSource      = "source"
	flagFrames      = "frames"
	flagShow        = "show"
	flagIterations  = "iterations"
	flagMotionArea  = "motion-area"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	configFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     flagConfig,
			Aliases:  []string{"c"},
			Usage:    "load configuration from `FILE`",
			Required: true,
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "override the configured log level",
		},
		&cli.StringFlag{
			Name:  flagMetricsAddr,
			Usage: "serve Prometheus metrics on `ADDR`, overriding the config",
		},
		&cli.IntFlag{
			Name:  flagWarmup,
			Usage: "blank frames to run before the first image (default: from config)",
		},
		&cli.StringFlag{
			Name:  flagFormat,
			Value: "table",
			Usage: "output format: table or yaml",
		},
	}

	return &cli.App{
		Name:  "detect",
		Usage: "run object detection and classification models on images",
		Commands: []*cli.Command{
			{
				Name:      "detect",
				Usage:     "detect objects in an image or a directory of frames",
				UsageText: "detect detect --config cfg.yaml --image a.jpg | --dir frames/ [--out dir] [--max-results n]",
				Flags: append(configFlags,
					&cli.StringSliceFlag{Name: flagImage, Aliases: []string{"i"}, Usage: "image `FILE` (repeatable)"},
					&cli.StringFlag{Name: flagDir, Aliases: []string{"d"}, Usage: "directory of frames"},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "write annotated frames to `DIR`"},
					&cli.IntFlag{Name: flagMaxResults, Usage: "report at most `N` detections per frame (0 = all)"},
					&cli.IntFlag{Name: flagWorkers, Value: runtime.NumCPU(), Usage: "frames processed in parallel"},
				),
				Action: detectAction,
			},
			{
				Name:      "classify",
				Usage:     "classify whole images",
				UsageText: "detect classify --config cfg.yaml --image a.jpg [--top k]",
				Flags: append(configFlags,
					&cli.StringSliceFlag{Name: flagImage, Aliases: []string{"i"}, Usage: "image `FILE` (repeatable)", Required: true},
					&cli.IntFlag{Name: flagTop, Aliases: []string{"k"}, Value: 5, Usage: "classes reported per image"},
				),
				Action: classifyAction,
			},
			{
				Name:      "watch",
				Usage:     "detect objects in a camera or video stream",
				UsageText: "detect watch --config cfg.yaml [--source 0|video.mp4] [--frames n] [--show] [--motion-area px]",
				Flags: append(configFlags,
					&cli.StringFlag{Name: flagSource, Value: "0", Usage: "capture device id or video file"},
					&cli.IntFlag{Name: flagFrames, Usage: "stop after `N` frames (0 = until the stream ends)"},
					&cli.BoolFlag{Name: flagShow, Usage: "show annotated frames in a window"},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "write frames with detections to `DIR`"},
					&cli.Float64Flag{Name: flagMotionArea, Usage: "only run the detector on frames with a moving blob of at least `PIXELS` (0 = every frame)"},
				),
				Action: watchAction,
			},
			{
				Name:      "bench",
				Usage:     "measure detector throughput over a set of frames",
				UsageText: "detect bench --config cfg.yaml --dir frames/ [--iterations n] [--workers n] [--out dir]",
				Flags: append(configFlags,
					&cli.StringSliceFlag{Name: flagImage, Aliases: []string{"i"}, Usage: "image `FILE` (repeatable)"},
					&cli.StringFlag{Name: flagDir, Aliases: []string{"d"}, Usage: "directory of frames"},
					&cli.IntFlag{Name: flagIterations, Aliases: []string{"n"}, Value: 100, Usage: "frames to run"},
					&cli.IntFlag{Name: flagWorkers, Value: 1, Usage: "frames processed in parallel"},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "write YAML results and a CSV summary to `DIR`"},
				),
				Action: benchAction,
			},
			{
				Name:   "presets",
				Usage:  "list the built-in model presets",
				Action: presetsAction,
			},
		},
	}
}
