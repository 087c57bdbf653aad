// Package benchmark - Throughput and latency runs of a detector over a frame corpus.
package benchmark

import "time"

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario      Scenario      `json:"scenario"       yaml:"scenario"`
	Timestamp     time.Time     `json:"timestamp"      yaml:"timestamp"`
	TotalDuration time.Duration `json:"total_duration" yaml:"total_duration"`
	// Mean per-frame stage times over the successful iterations.
	PreProcessDuration  time.Duration `json:"preprocess_duration"  yaml:"preprocess_duration"`
	InferenceDuration   time.Duration `json:"inference_duration"   yaml:"inference_duration"`
	PostProcessDuration time.Duration `json:"postprocess_duration" yaml:"postprocess_duration"`
	FramesPerSecond     float64       `json:"frames_per_second"    yaml:"frames_per_second"`
	MemoryStats         MemoryMetrics `json:"memory_stats"         yaml:"memory_stats"`
	CPUStats            CPUMetrics    `json:"cpu_stats"            yaml:"cpu_stats"`
	DetectionCount      int           `json:"detection_count"      yaml:"detection_count"`
	Errors              int           `json:"errors"               yaml:"errors"`
	ErrorRate           float64       `json:"error_rate"           yaml:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"       yaml:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes" yaml:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"         yaml:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"            yaml:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"  yaml:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"    yaml:"heap_sys_bytes"`
}

// CPUMetrics captures CPU usage statistics
type CPUMetrics struct {
	NumCPU     int `json:"num_cpu"    yaml:"num_cpu"`
	GOMAXPROCS int `json:"gomaxprocs" yaml:"gomaxprocs"`
}
