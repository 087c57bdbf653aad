// Package profiler - Per-stage timing statistics for the detection pipeline.
package profiler

import (
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Stage is one step of a frame's trip through a detector.
type Stage string

// Pipeline stages.
const (
	StagePreprocess  Stage = "preprocess"
	StageInference   Stage = "inference"
	StagePostprocess Stage = "postprocess"
)

// DefaultMaxSamples is the rolling window kept per stage.
const DefaultMaxSamples = 600

// Options configures the profiler.
type Options struct {
	// MaxSamples specifies the number of recent durations kept per stage
	// (default: 600).
	MaxSamples int
	// Namespace prefixes the Prometheus metric names (default: "detect").
	Namespace string
}

// Profiler tracks operation timing statistics per stage. It is safe for
// concurrent use.
type Profiler struct {
	mu         sync.Mutex
	maxSamples int
	startTime  time.Time
	stages     map[Stage]*timeTracker

	durations *prometheus.HistogramVec
	errors    *prometheus.CounterVec
}

// timeTracker tracks operation timing statistics.
type timeTracker struct {
	durations []time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
	errors    int64
}

// New creates a new profiler with the specified options.
//
// Arguments:
// - opts: Configuration options for the profiler
//
// Returns:
// - A configured Profiler instance
func New(opts Options) *Profiler {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = DefaultMaxSamples
	}
	if opts.Namespace == "" {
		opts.Namespace = "detect"
	}

	return &Profiler{
		maxSamples: opts.MaxSamples,
		startTime:  time.Now(),
		stages:     make(map[Stage]*timeTracker),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"stage"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "stage_errors_total",
			Help:      "Frames that failed in each pipeline stage.",
		}, []string{"stage"}),
	}
}

// Collectors returns the stage duration histogram and the stage error counter.
func (p *Profiler) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.durations, p.errors}
}

// Register adds the profiler's collectors to a Prometheus registry.
func (p *Profiler) Register(reg prometheus.Registerer) error {
	for _, c := range p.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// StartOperation begins timing a stage.
//
// Arguments:
// - stage: The stage to track
//
// Returns:
// - A function to call when the stage completes; it returns the duration
func (p *Profiler) StartOperation(stage Stage) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		p.Record(stage, d)
		return d
	}
}

// Record records the completion time of a stage.
func (p *Profiler) Record(stage Stage, d time.Duration) {
	p.durations.WithLabelValues(string(stage)).Observe(d.Seconds())

	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.tracker(stage)
	if t.count == 0 || d < t.minTime {
		t.minTime = d
	}
	if d > t.maxTime {
		t.maxTime = d
	}
	t.count++

	t.durations = append(t.durations, d)
	if len(t.durations) > p.maxSamples {
		t.durations = t.durations[1:]
	}
}

// RecordError counts a failure in a stage.
func (p *Profiler) RecordError(stage Stage) {
	p.errors.WithLabelValues(string(stage)).Inc()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracker(stage).errors++
}

func (p *Profiler) tracker(stage Stage) *timeTracker {
	t, ok := p.stages[stage]
	if !ok {
		t = &timeTracker{durations: make([]time.Duration, 0, p.maxSamples)}
		p.stages[stage] = t
	}
	return t
}

// StageStats summarizes one stage. Min and Max cover every recorded
// duration; Mean and the percentiles cover the rolling window.
type StageStats struct {
	Count  int64         `json:"count"  yaml:"count"`
	Errors int64         `json:"errors" yaml:"errors"`
	Mean   time.Duration `json:"mean"   yaml:"mean"`
	Min    time.Duration `json:"min"    yaml:"min"`
	Max    time.Duration `json:"max"    yaml:"max"`
	P50    time.Duration `json:"p50"    yaml:"p50"`
	P95    time.Duration `json:"p95"    yaml:"p95"`
}

// Snapshot is a point-in-time copy of the profiler state.
type Snapshot struct {
	Uptime     time.Duration        `json:"uptime"      yaml:"uptime"`
	Goroutines int                  `json:"goroutines"  yaml:"goroutines"`
	HeapAlloc  uint64               `json:"heap_alloc"  yaml:"heap_alloc"`
	NumGC      uint32               `json:"num_gc"      yaml:"num_gc"`
	Stages     map[Stage]StageStats `json:"stages"      yaml:"stages"`
}

// Snapshot returns the current profiling statistics.
func (p *Profiler) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Uptime:     time.Since(p.startTime),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		NumGC:      mem.NumGC,
		Stages:     make(map[Stage]StageStats, len(p.stages)),
	}
	for stage, t := range p.stages {
		s.Stages[stage] = t.stats()
	}
	return s
}

func (t *timeTracker) stats() StageStats {
	st := StageStats{Count: t.count, Errors: t.errors, Min: t.minTime, Max: t.maxTime}
	if len(t.durations) == 0 {
		return st
	}

	sorted := append([]time.Duration(nil), t.durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	st.Mean = total / time.Duration(len(sorted))
	st.P50 = percentile(sorted, 0.50)
	st.P95 = percentile(sorted, 0.95)
	return st
}

// percentile uses the nearest-rank method on a sorted window.
func percentile(sorted []time.Duration, q float64) time.Duration {
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// Report logs the snapshot, one line per stage.
func (p *Profiler) Report(logger *zap.SugaredLogger) {
	s := p.Snapshot()
	logger.Infow("profiler status",
		"uptime", s.Uptime.Truncate(time.Millisecond),
		"goroutines", s.Goroutines,
		"heap_alloc", s.HeapAlloc,
		"gc_cycles", s.NumGC,
	)

	for _, stage := range []Stage{StagePreprocess, StageInference, StagePostprocess} {
		st, ok := s.Stages[stage]
		if !ok {
			continue
		}
		logger.Infow("stage timing",
			"stage", string(stage),
			"count", st.Count,
			"errors", st.Errors,
			"mean", st.Mean.Truncate(time.Microsecond),
			"min", st.Min.Truncate(time.Microsecond),
			"max", st.Max.Truncate(time.Microsecond),
			"p95", st.P95.Truncate(time.Microsecond),
		)
	}
}
