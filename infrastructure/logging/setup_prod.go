//go:build prod

package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the active log file inside the log directory.
const LogFileName = "textmacro.log"

// Setup writes logs to a size-rotated file under cfg.Dir. Nothing is
// written to the console, so stdout and stderr carry only command output.
// The returned function closes the current log file.
func Setup(cfg *Config) (*slog.Logger, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rotator, err := newRotator(cfg)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(newHandler(rotator, cfg))
	setGlobal(logger)
	return logger, rotator.Close, nil
}

func newRotator(cfg *Config) (*lumberjack.Logger, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultLogDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}, nil
}
