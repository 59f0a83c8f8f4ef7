package ocr

import (
	"errors"
	"fmt"
	"log/slog"
)

// Engine names accepted by Select.
const (
	EngineAuto      = "auto"
	EngineTesseract = "tesseract"
	EngineHTTP      = "http"
	EngineNone      = "none"
)

// SelectConfig describes which engine to build and how to wrap it.
type SelectConfig struct {
	Engine      string
	HTTP        ClientConfig
	Cache       bool
	MaxDistance int
	Breaker     *BreakerConfig
	Logger      *slog.Logger
}

// Select builds the recognizer named by cfg.Engine.
//
// "auto" prefers a linked Tesseract, then a healthy HTTP service, and
// otherwise returns the unavailable NoOp recognizer so that monitoring can
// still start. Naming an explicit engine that cannot be built is an error,
// except "http", which is returned even while unhealthy because its health
// check keeps retrying.
func Select(cfg SelectConfig) (Recognizer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ocr")

	base, err := selectBase(cfg, logger)
	if err != nil {
		return nil, err
	}

	var rec Recognizer = base
	if cfg.Breaker != nil && base.Name() != EngineNone {
		rec = WithBreaker(rec, NewBreaker(*cfg.Breaker, logger))
	}
	if cfg.Cache && base.Name() != EngineNone {
		rec = NewCachedRecognizer(rec, cfg.MaxDistance, logger)
	}

	logger.Info("OCR engine selected", "engine", rec.Name(), "available", rec.Available())
	return rec, nil
}

func selectBase(cfg SelectConfig, logger *slog.Logger) (Recognizer, error) {
	httpCfg := cfg.HTTP
	if httpCfg.Logger == nil {
		httpCfg.Logger = logger
	}

	switch cfg.Engine {
	case EngineTesseract:
		t, err := NewTesseract()
		if err != nil {
			return nil, err
		}
		return t, nil

	case EngineHTTP:
		if httpCfg.BaseURL == "" {
			return nil, errors.New("ocr: http engine requires a base URL")
		}
		return NewHTTPClient(&httpCfg), nil

	case EngineNone:
		return NewNoOp(), nil

	case EngineAuto, "":
		t, err := NewTesseract()
		if err == nil {
			return t, nil
		}
		logger.Debug("Tesseract not usable", "error", err)
		if httpCfg.BaseURL != "" {
			client := NewHTTPClient(&httpCfg)
			if client.Available() {
				return client, nil
			}
			logger.Warn("OCR service not healthy", "url", httpCfg.BaseURL)
			client.Close() //nolint:errcheck // no-op error
		}
		return NewNoOp(), nil

	default:
		return nil, fmt.Errorf("ocr: unknown engine %q", cfg.Engine)
	}
}
