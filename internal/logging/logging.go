// Package logging builds the zap loggers of both binaries.
package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/and161185/subtrack/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewServer returns a production JSON logger on stderr.
func NewServer(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// NewClient returns the CLI logger. Stdout belongs to command output, so
// records go to a rotating file, or to stderr at warn when no file is set.
// The returned closer releases the file.
func NewClient(cfg config.Log) (*zap.Logger, io.Closer, error) {
	if cfg.File == "" {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		zc.Sampling = nil
		l, err := zc.Build()
		if err != nil {
			return nil, nil, err
		}
		return l, nopCloser{}, nil
	}

	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(lj),
		lvl,
	)
	return zap.New(core, zap.AddCaller()), lj, nil
}
