// Package logging - zap logger construction.
package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config describes the process logger.
type Config struct {
	// Level is a zap level name: debug, info, warn or error.
	Level string `json:"level" yaml:"level"`
	// Format is "console" or "json".
	Format string `json:"format" yaml:"format"`
	// Outputs are zap sink URLs or paths. Empty means stderr.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatConsole}
}

// Validate checks the level and format names.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return errors.Wrapf(err, "invalid log level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", FormatConsole, FormatJSON:
		return nil
	default:
		return errors.Errorf("invalid log format %q", c.Format)
	}
}

// NewLoggerConfig returns the zap configuration for c. Stacktraces are
// disabled and durations print as strings.
func NewLoggerConfig(c Config) (zap.Config, error) {
	if err := c.Validate(); err != nil {
		return zap.Config{}, err
	}
	level, _ := zapcore.ParseLevel(c.Level)

	format := strings.ToLower(c.Format)
	if format == "" {
		format = FormatConsole
	}

	encodeLevel := zapcore.CapitalColorLevelEncoder
	if format == FormatJSON {
		encodeLevel = zapcore.LowercaseLevelEncoder
	}

	outputs := c.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: format,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeLevel,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
	}, nil
}

// New builds a named sugared logger.
func New(name string, c Config) (*zap.SugaredLogger, error) {
	zc, err := NewLoggerConfig(c)
	if err != nil {
		return nil, err
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "error building logger")
	}
	return logger.Sugar().Named(name), nil
}

// NewNop returns a logger that discards everything.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
