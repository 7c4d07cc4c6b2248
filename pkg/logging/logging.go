// Package logging builds the zap loggers used across routegate.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger profile.
type Config struct {
	Level       string `yaml:"level" toml:"level" env:"LEVEL"`
	Development bool   `yaml:"development" toml:"development" env:"DEVELOPMENT"`
}

// ParseLevel resolves a level name. Empty means info, or debug in development.
func ParseLevel(level string, development bool) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		if development {
			return zapcore.DebugLevel, nil
		}
		return zapcore.InfoLevel, nil
	}
	var parsed zapcore.Level
	if err := parsed.Set(level); err != nil {
		return parsed, fmt.Errorf("invalid level %q: %w", level, err)
	}
	return parsed, nil
}

// New creates a logger writing to stderr. Production loggers encode JSON;
// development loggers use the console encoder.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level, cfg.Development)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
