//go:build !prod

package logging

import (
	"log/slog"
	"os"
)

// Setup writes logs to cfg.Output, or stderr when unset. There is nothing to
// release, so the returned close function is a no-op.
func Setup(cfg *Config) (*slog.Logger, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	logger := slog.New(newHandler(out, cfg))
	setGlobal(logger)
	return logger, func() error { return nil }, nil
}
