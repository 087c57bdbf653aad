package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/logging"
	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/report"
)

// env holds what every command needs: configuration, logger, profiler and
// the optional metrics endpoint.
type env struct {
	cfg      config.Config
	format   report.Format
	logger   *zap.SugaredLogger
	profiler *profiler.Profiler
	server   *http.Server
	engine   *inference.Session
}

func newEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	if lvl := c.String(flagLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	if addr := c.String(flagMetricsAddr); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if c.IsSet(flagWarmup) {
		cfg.Detector.WarmupRuns = c.Int(flagWarmup)
	}

	format, err := report.ParseFormat(c.String(flagFormat))
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(c.Command.Name, cfg.Log)
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:      cfg,
		format:   format,
		logger:   logger,
		profiler: profiler.New(profiler.Options{Namespace: cfg.Metrics.Namespace}),
	}
	if cfg.Metrics.Addr != "" {
		if err := e.serveMetrics(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// serveMetrics exposes the profiler and the Go runtime collectors on
// cfg.Metrics.Addr.
func (e *env) serveMetrics() error {
	reg := prometheus.NewRegistry()
	if err := e.profiler.Register(reg); err != nil {
		return errors.Wrap(err, "error registering profiler metrics")
	}
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	e.server = &http.Server{
		Addr:              e.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Errorw("metrics server failed", "addr", e.cfg.Metrics.Addr, "error", err)
		}
	}()
	e.logger.Infow("serving metrics", "addr", e.cfg.Metrics.Addr)
	return nil
}

// openEngine creates the ONNX Runtime session of the configured model.
func (e *env) openEngine() (*inference.Session, error) {
	args := e.cfg.SessionArgs()
	session, err := inference.NewSession(args)
	if err != nil {
		return nil, err
	}
	e.logger.Infow("session ready",
		"model", args.ModelPath,
		"backend", string(args.Provider.Backend),
		"outputs", session.Outputs(),
	)
	e.engine = session
	return session, nil
}

// close reports the profiler, stops the metrics endpoint and tears the
// runtime down. The engine itself is closed by its detector.
func (e *env) close() error {
	e.profiler.Report(e.logger)

	var err error
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, e.server.Shutdown(ctx))
	}
	if e.engine != nil {
		err = multierr.Append(err, inference.Shutdown())
	}
	_ = e.logger.Sync()
	return err
}
