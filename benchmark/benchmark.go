package benchmark

import (
	"context"
	"encoding/csv"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/detector"
)

// Detector is the part of detector.Detector a benchmark drives.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (*detector.Result, error)
	Warmup(ctx context.Context, runs int) error
}

// Scenario defines a specific test configuration
type Scenario struct {
	Name       string `json:"name"        yaml:"name"`
	Iterations int    `json:"iterations"  yaml:"iterations"`
	WarmupRuns int    `json:"warmup_runs" yaml:"warmup_runs"`
	// Workers is the number of frames in flight at once.
	Workers int `json:"workers" yaml:"workers"`
}

// Validate checks that the scenario can run.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario name is required")
	}
	if s.Iterations <= 0 {
		return errors.Errorf("scenario %s: iterations must be positive, got %d", s.Name, s.Iterations)
	}
	if s.WarmupRuns < 0 || s.Workers < 0 {
		return errors.Errorf("scenario %s: warmup runs and workers must not be negative", s.Name)
	}
	return nil
}

// Suite manages and executes benchmark scenarios
type Suite struct {
	detector Detector
	corpus   []image.Image
	logger   *zap.SugaredLogger

	mu      sync.RWMutex
	results []PerformanceMetrics
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - det: The detector under test.
//   - corpus: The frames to cycle through, at least one.
//   - logger: The logger, or nil to discard logs.
//
// Returns:
//   - *Suite: The benchmark suite.
//   - error: If the corpus is empty.
func NewSuite(det Detector, corpus []image.Image, logger *zap.SugaredLogger) (*Suite, error) {
	if len(corpus) == 0 {
		return nil, errors.New("benchmark corpus is empty")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Suite{detector: det, corpus: corpus, logger: logger}, nil
}

// RunScenario executes a single benchmark scenario. Frame errors are counted,
// not returned; only a cancelled context or a failed warmup stops the run.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	if scenario.WarmupRuns > 0 {
		if err := s.detector.Warmup(ctx, scenario.WarmupRuns); err != nil {
			return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
		}
	}

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	var (
		mu                 sync.Mutex
		detections, failed int
		timings            detector.Timings
	)

	startTime := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, scenario.Workers))
	for i := 0; i < scenario.Iterations; i++ {
		img := s.corpus[i%len(s.corpus)]
		g.Go(func() error {
			res, err := s.detector.Detect(gctx, img)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed++
				return nil
			}
			detections += len(res.Detections)
			timings.TimePreProcess += res.TimePreProcess
			timings.TimeInference += res.TimeInference
			timings.TimePostProcess += res.TimePostProcess
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	totalDuration := time.Since(startTime)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	metrics.TotalDuration = totalDuration
	metrics.FramesPerSecond = float64(scenario.Iterations) / totalDuration.Seconds()
	metrics.DetectionCount = detections
	metrics.Errors = failed
	metrics.ErrorRate = float64(failed) / float64(scenario.Iterations)
	if ok := scenario.Iterations - failed; ok > 0 {
		metrics.PreProcessDuration = timings.TimePreProcess / time.Duration(ok)
		metrics.InferenceDuration = timings.TimeInference / time.Duration(ok)
		metrics.PostProcessDuration = timings.TimePostProcess / time.Duration(ok)
	}
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}
	metrics.CPUStats = CPUMetrics{
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}

	s.mu.Lock()
	s.results = append(s.results, *metrics)
	s.mu.Unlock()

	s.logger.Infow("scenario completed",
		"scenario", scenario.Name,
		"fps", fmt.Sprintf("%.2f", metrics.FramesPerSecond),
		"errors", failed,
		"inference", metrics.InferenceDuration,
	)
	return metrics, nil
}

// RunAllScenarios runs each scenario in turn and stops at the first error.
func (s *Suite) RunAllScenarios(ctx context.Context, scenarios []Scenario) error {
	for _, scenario := range scenarios {
		if _, err := s.RunScenario(ctx, scenario); err != nil {
			return err
		}
	}
	return nil
}

// GetResults returns all benchmark results
func (s *Suite) GetResults() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]PerformanceMetrics, len(s.results))
	copy(results, s.results)
	return results
}

// SaveResults writes the detailed results as YAML and a one-line-per-scenario
// CSV summary into dir, returning the two paths.
func (s *Suite) SaveResults(dir string) (string, string, error) {
	results := s.GetResults()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(dir, fmt.Sprintf("benchmark_results_%s.yaml", timestamp))
	data, err := yaml.Marshal(results)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return "", "", errors.Wrap(err, "failed to write results file")
	}

	summaryFile := filepath.Join(dir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return "", "", errors.Wrap(err, "failed to save summary CSV")
	}
	return resultsFile, summaryFile, nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(file)
	if err := w.Write([]string{
		"scenario", "iterations", "workers", "fps", "total_ms", "inference_ms", "alloc_mb", "detections", "error_rate",
	}); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{
			r.Scenario.Name,
			strconv.Itoa(r.Scenario.Iterations),
			strconv.Itoa(max(1, r.Scenario.Workers)),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(float64(r.TotalDuration.Nanoseconds())/1e6, 'f', 2, 64),
			strconv.FormatFloat(float64(r.InferenceDuration.Nanoseconds())/1e6, 'f', 3, 64),
			strconv.FormatFloat(float64(r.MemoryStats.AllocBytes)/(1024*1024), 'f', 2, 64),
			strconv.Itoa(r.DetectionCount),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
