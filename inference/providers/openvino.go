package providers

import (
	"strconv"

	"github.com/pkg/errors"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type, e.g. CPU, GPU or NPU.
	DeviceType string `json:"device_type" yaml:"device_type"`
	// Supported precisions for HW {CPU:FP32, GPU:[FP32, FP16, ACCURACY], NPU:FP16}.
	Precision Precision `json:"precision" yaml:"precision"`
	// Overrides the accelerator default number of threads.
	NumOfThreads int `json:"num_of_threads" yaml:"num_of_threads"`
	// Overrides the accelerator default number of streams.
	NumStreams int `json:"num_streams" yaml:"num_streams"`
	// Rewrites dynamic shaped models to static shape at runtime.
	DisableDynamicShapes bool `json:"disable_dynamic_shapes" yaml:"disable_dynamic_shapes"`
	// CacheDir stores compiled blobs between runs.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

// Validate rejects precisions the provider does not know.
func (o OpenVINOOptions) Validate() error {
	switch o.Precision {
	case "", PrecisionFP32, PrecisionFP16, PrecisionAccuracy:
	default:
		return errors.Errorf("openvino does not support precision %q", o.Precision)
	}
	if o.NumOfThreads < 0 || o.NumStreams < 0 {
		return errors.New("openvino thread and stream counts must not be negative")
	}
	return nil
}

// ToMap converts the options to provider keys. Unset values are left out so
// the provider keeps its build defaults.
func (o OpenVINOOptions) ToMap() map[string]string {
	m := map[string]string{}
	if o.DeviceType != "" {
		m["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		m["precision"] = string(o.Precision)
	}
	if o.NumOfThreads > 0 {
		m["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	if o.NumStreams > 0 {
		m["num_streams"] = strconv.Itoa(o.NumStreams)
	}
	if o.DisableDynamicShapes {
		m["disable_dynamic_shapes"] = "true"
	}
	if o.CacheDir != "" {
		m["cache_dir"] = o.CacheDir
	}
	return m
}
