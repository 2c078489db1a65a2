// Package logging builds the daemon's zap logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger that appends JSON lines to logPath and mirrors a
// console rendering on stderr. Every entry carries the session name and pid.
func New(logPath, sessionName string, level zapcore.Level) (*zap.Logger, error) {
	file, err := openLogFile(logPath)
	if err != nil {
		return nil, err
	}

	fileEnc := fileEncoderConfig()
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(file), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig(fileEnc)), zapcore.Lock(os.Stderr), level),
	)

	return zap.New(core,
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
		zap.Fields(
			zap.String("session", sessionName),
			zap.Int("pid", os.Getpid()),
		),
	), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// The console drops the caller and keeps level names short and upper case.
func consoleEncoderConfig(base zapcore.EncoderConfig) zapcore.EncoderConfig {
	base.CallerKey = zapcore.OmitKey
	base.EncodeLevel = zapcore.CapitalLevelEncoder
	base.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return base
}
