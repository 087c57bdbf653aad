// Package providers - Execution providers and session options for ONNX Runtime.
package providers

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Backend represents different ONNX Runtime execution providers.
type Backend string

const (
	// BackendCPU uses the default CPU provider.
	BackendCPU Backend = "cpu"
	// BackendCoreML uses Apple CoreML for macOS/iOS acceleration.
	BackendCoreML Backend = "coreml"
	// BackendOpenVINO uses Intel OpenVINO for inference optimization.
	BackendOpenVINO Backend = "openvino"
)

// Precision represents the precision of a model.
type Precision string

// Precision constants are the supported precisions for inference.
const (
	PrecisionFP16     Precision = "FP16"
	PrecisionFP32     Precision = "FP32"
	PrecisionAccuracy Precision = "ACCURACY"
)

// GraphOptimization selects how aggressively the graph is rewritten at load time.
type GraphOptimization string

// Graph optimization levels.
const (
	GraphOptimizationNone     GraphOptimization = "disable_all"
	GraphOptimizationBasic    GraphOptimization = "basic"
	GraphOptimizationExtended GraphOptimization = "extended"
	GraphOptimizationAll      GraphOptimization = "all"
)

// Config selects the execution provider and the session tuning knobs.
type Config struct {
	// Backend is the execution provider to append to the session.
	Backend Backend `json:"backend" yaml:"backend"`
	// IntraOpThreads parallelizes work inside one node. Zero lets the runtime decide.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads parallelizes independent nodes. Zero lets the runtime decide.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// Parallel runs independent nodes in parallel instead of sequentially.
	Parallel bool `json:"parallel" yaml:"parallel"`
	// GraphOptimization is the graph rewrite level.
	GraphOptimization GraphOptimization `json:"graph_optimization" yaml:"graph_optimization"`

	CoreML   CoreMLOptions   `json:"coreml,omitempty"   yaml:"coreml,omitempty"`
	OpenVINO OpenVINOOptions `json:"openvino,omitempty" yaml:"openvino,omitempty"`
}

// DefaultConfig returns a CPU configuration with extended graph optimization
// and half of the cores for intra-op work.
//
// Returns:
//   - Config: Production-ready configuration
//
// @example
// cfg := DefaultConfig()
// cfg.Backend = BackendCoreML
func DefaultConfig() Config {
	return Config{
		Backend:           BackendCPU,
		IntraOpThreads:    max(1, runtime.NumCPU()/2),
		InterOpThreads:    1,
		GraphOptimization: GraphOptimizationExtended,
	}
}

// Validate checks the configuration without touching the native runtime.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendCPU, BackendCoreML, BackendOpenVINO:
	default:
		return errors.Errorf("unsupported execution provider %q", c.Backend)
	}
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 {
		return errors.Errorf("thread counts must not be negative, got intra=%d inter=%d",
			c.IntraOpThreads, c.InterOpThreads)
	}
	if _, err := c.graphOptimizationLevel(); err != nil {
		return err
	}
	if c.Backend == BackendOpenVINO {
		return c.OpenVINO.Validate()
	}
	return nil
}

func (c Config) graphOptimizationLevel() (ort.GraphOptimizationLevel, error) {
	switch c.GraphOptimization {
	case GraphOptimizationNone:
		return ort.GraphOptimizationLevelDisableAll, nil
	case GraphOptimizationBasic:
		return ort.GraphOptimizationLevelEnableBasic, nil
	case GraphOptimizationExtended, "":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case GraphOptimizationAll:
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, errors.Errorf("unknown graph optimization %q", c.GraphOptimization)
	}
}

// NewSessionOptions creates session options that control execution behavior
// and append the configured execution provider. The caller destroys them once
// the session is created.
//
// Arguments:
//   - c: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: The options.
//   - error: If the runtime rejects an option or the provider is unavailable.
func NewSessionOptions(c Config) (*ort.SessionOptions, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	level, _ := c.graphOptimizationLevel()

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	if err := configure(options, c, level); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, c Config, level ort.GraphOptimizationLevel) error {
	if err := options.SetIntraOpNumThreads(c.IntraOpThreads); err != nil {
		return errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(c.InterOpThreads); err != nil {
		return errors.Wrap(err, "error setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		return errors.Wrap(err, "error setting graph optimization level")
	}
	var mode ort.ExecutionMode = ort.ExecutionModeSequential
	if c.Parallel {
		mode = ort.ExecutionModeParallel
	}
	if err := options.SetExecutionMode(mode); err != nil {
		return errors.Wrap(err, "error setting execution mode")
	}

	switch c.Backend {
	case BackendCoreML:
		if err := options.AppendExecutionProviderCoreML(c.CoreML.Flags()); err != nil {
			return errors.Wrap(err, "error enabling CoreML")
		}
	case BackendOpenVINO:
		if err := options.AppendExecutionProviderOpenVINO(c.OpenVINO.ToMap()); err != nil {
			return errors.Wrap(err, "error enabling OpenVINO")
		}
	}
	return nil
}
