// Package config - YAML configuration of a detection run.
package config

import (
	"bytes"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/logging"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Engine selects the ONNX Runtime library and execution provider.
type Engine struct {
	// LibraryPath is the ONNX Runtime shared library (default: per platform).
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// Provider configures threading and the execution provider.
	Provider providers.Config `json:"provider" yaml:"provider"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Addr is the listen address of /metrics; empty disables the endpoint.
	Addr string `json:"addr" yaml:"addr"`
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace" yaml:"namespace"`
}

// Config is the whole configuration file.
type Config struct {
	Log      logging.Config  `json:"log"      yaml:"log"`
	Engine   Engine          `json:"engine"   yaml:"engine"`
	Detector detector.Config `json:"detector" yaml:"detector"`
	Metrics  Metrics         `json:"metrics"  yaml:"metrics"`
}

// Default returns the configuration of the given model with default logging
// and a CPU engine.
func Default(name model.Name) (Config, error) {
	d, err := detector.DefaultConfig(name)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Log:      logging.DefaultConfig(),
		Engine:   Engine{Provider: providers.DefaultConfig()},
		Detector: d,
		Metrics:  Metrics{Namespace: "detect"},
	}, nil
}

// Load reads a configuration file. ${VAR} references are expanded from the
// environment before parsing.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The configuration, validated.
//   - error: If the file is unreadable, malformed or invalid.
//
// @example
// cfg, err := config.Load("configs/nanodet.yaml")
func Load(path string) (Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "error reading config %s", path)
	}
	cfg, err := Parse(buf)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes a configuration document. The model name is read first so
// that its preset supplies every field the document leaves out.
func Parse(data []byte) (Config, error) {
	var head struct {
		Detector struct {
			Model struct {
				Name model.Name `yaml:"name"`
			} `yaml:"model"`
		} `yaml:"detector"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, errors.Wrap(err, "error parsing config")
	}
	name := head.Detector.Model.Name
	if name == "" {
		return Config{}, errors.Wrap(postprocess.ErrInvalidConfig, "detector.model.name is required")
	}

	cfg, err := Default(name)
	if err != nil {
		return Config{}, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "error parsing config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(err, "log")
	}
	if err := c.Engine.Provider.Validate(); err != nil {
		return errors.Wrap(err, "engine")
	}
	if err := c.Detector.Model.Validate(); err != nil {
		return errors.Wrap(err, "detector")
	}
	if c.Detector.WarmupRuns < 0 {
		return errors.Wrapf(postprocess.ErrInvalidConfig, "detector: warmup_runs %d is negative", c.Detector.WarmupRuns)
	}
	return nil
}

// SessionArgs returns the ONNX Runtime session arguments of the configured
// model.
func (c Config) SessionArgs() inference.SessionArgs {
	m := c.Detector.Model
	return inference.SessionArgs{
		ModelPath:   m.Path,
		LibraryPath: c.Engine.LibraryPath,
		Inputs:      m.Inputs,
		Outputs:     m.Outputs,
		InputShape:  m.Preprocessing().Shape(),
		Provider:    c.Engine.Provider,
	}
}
