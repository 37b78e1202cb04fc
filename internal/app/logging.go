package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clihub/internal/infra/config"
	"clihub/internal/infra/telemetry"
)

// LoggingConfig configures logging wiring.
type LoggingConfig struct {
	Logger *zap.Logger
}

// NewLogger returns the base logger tagged as core output.
func NewLogger(cfg LoggingConfig) *zap.Logger {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String(telemetry.FieldLogSource, telemetry.LogSourceCore)).Named("app")
}

// BuildLogger builds a production logger writing to stderr, which keeps
// stdout free for the stdio transport.
func BuildLogger(level string) (*zap.Logger, zap.AtomicLevel, error) {
	atomic := zap.NewAtomicLevel()
	if strings.TrimSpace(level) != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, atomic, fmt.Errorf("log level: %w", err)
		}
		atomic.SetLevel(parsed)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = atomic
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, atomic, err
	}
	return logger, atomic, nil
}

// applyLogLevel adjusts level from the loaded config. Invalid levels were
// already rejected by the loader.
func applyLogLevel(level *zap.AtomicLevel, cfg config.Config) {
	if level == nil {
		return
	}
	if parsed, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		level.SetLevel(parsed)
	}
}
