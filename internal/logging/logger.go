// Package logging builds the zap loggers used by sessiond processes.
//
// Hook processes are part of the host's I/O protocol: stdout carries hook
// JSON and stderr carries block explanations, so their logs go to a file
// under the state directory instead. The serve command logs to stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/sessiond/internal/config"
)

// LogFileName is the hook-process log file under the state directory.
const LogFileName = "sessiond.log"

// NewHookLogger returns a logger for one-shot hook invocations, writing to
// <stateDir>/sessiond.log. Logging must never break a hook decision: if the
// file cannot be opened the returned logger is a no-op and the error is nil.
func NewHookLogger(cfg config.LoggingConfig, stateDir string) *zap.Logger {
	path := cfg.File
	if path == "" {
		path = filepath.Join(stateDir, LogFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zap.NewNop()
	}

	core := zapcore.NewCore(
		newEncoder(cfg.Format),
		zapcore.Lock(f),
		parseLevel(cfg.Level),
	)
	return zap.New(core)
}

// NewServerLogger returns a logger for the long-lived serve command,
// writing to stdout.
func NewServerLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)
	if cfg.Format != "json" && cfg.Format != "console" {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(
		newEncoder(cfg.Format),
		zapcore.Lock(os.Stdout),
		level,
	)
	return zap.New(core), nil
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// parseLevel maps a config level string to a zap level, defaulting to info.
func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
