// Package logging builds the process-wide zap logger. Every component logs
// through a child of this logger, so the service tag and sampling policy set
// here apply across the whole job lifecycle.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger profile.
type Config struct {
	// Development switches to the console encoder with colored levels.
	Development bool
	// Level overrides the profile default: "debug", "info", "warn", "error".
	Level string
}

// New builds the root logger. Production output is JSON tagged with the
// service name and sampled, so per-document pipeline logging cannot swamp
// the sink during a large extraction.
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "ts"
	zc.InitialFields = map[string]any{"service": "docstream"}
	zc.Sampling = &zap.SamplingConfig{Initial: 50, Thereafter: 10}
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.TimeKey = "ts"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
