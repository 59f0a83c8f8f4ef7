// Package ocr provides text recognition engines: a local Tesseract binding,
// an HTTP OCR service client and a no-op fallback, plus a result cache and a
// circuit breaker that wrap any of them.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrUnavailable is returned when the backing engine cannot serve requests.
	ErrUnavailable = errors.New("ocr: engine unavailable")
	// ErrDisabled is returned by the no-op recognizer.
	ErrDisabled = errors.New("ocr: disabled")
)

// Recognizer extracts text from images.
type Recognizer interface {
	// Recognize returns the recognized text, possibly empty.
	Recognize(ctx context.Context, img image.Image, lang string) (string, error)

	// Available reports whether the engine can currently serve requests.
	Available() bool

	// Name identifies the engine for logs.
	Name() string

	// Close releases resources.
	Close() error
}

// ClientConfig contains configuration for the OCR service client.
type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	HealthInterval time.Duration
	HealthTimeout  time.Duration
	Logger         *slog.Logger
}

// DefaultClientConfig returns default OCR client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://localhost:8000",
		Timeout:        10 * time.Second,
		HealthInterval: 30 * time.Second,
		HealthTimeout:  3 * time.Second,
	}
}

// HTTPClient recognizes text by posting PNG-encoded images to an OCR service.
//
// The service exposes POST /v1/text?lang=<hint> returning {"text": "..."} and
// GET /health returning 200 when ready.
type HTTPClient struct {
	config       *ClientConfig
	httpClient   *http.Client
	logger       *slog.Logger
	healthy      atomic.Bool
	healthCtx    context.Context
	healthCancel context.CancelFunc
	healthWg     sync.WaitGroup
	closeOnce    sync.Once
}

// NewHTTPClient creates a new HTTP-based OCR client. It performs one health
// check synchronously and keeps checking in the background until Close.
func NewHTTPClient(config *ClientConfig) *HTTPClient {
	if config == nil {
		config = DefaultClientConfig()
	}
	defaults := DefaultClientConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.HealthInterval <= 0 {
		config.HealthInterval = defaults.HealthInterval
	}
	if config.HealthTimeout <= 0 {
		config.HealthTimeout = defaults.HealthTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	client := &HTTPClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:       logger.With("component", "ocr", "engine", "http"),
		healthCtx:    ctx,
		healthCancel: cancel,
	}

	client.performHealthCheck()

	client.healthWg.Add(1)
	go client.healthCheckLoop()

	return client
}

// Name implements Recognizer.
func (c *HTTPClient) Name() string {
	return "http"
}

// Recognize posts the image to the service and returns the text it found.
// A 404 from the service means no text and is not an error.
func (c *HTTPClient) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	body, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	requestURL := strings.TrimRight(c.config.BaseURL, "/") + "/v1/text"
	if lang != "" {
		params := url.Values{}
		params.Add("lang", lang)
		requestURL = fmt.Sprintf("%s?%s", requestURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var apiResp struct {
		Text  string `json:"text"`
		Debug struct {
			Confidence float64 `json:"confidence"`
			ElapsedMs  float64 `json:"elapsed_ms"`
		} `json:"debug"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.Debug("Text recognized",
		"chars", len(apiResp.Text),
		"confidence", apiResp.Debug.Confidence,
		"elapsed_ms", apiResp.Debug.ElapsedMs)

	return apiResp.Text, nil
}

// Available returns true if the OCR service passed its last health check.
func (c *HTTPClient) Available() bool {
	return c.healthy.Load()
}

// Close stops the health check loop.
func (c *HTTPClient) Close() error {
	c.closeOnce.Do(func() {
		c.healthCancel()
		c.healthWg.Wait()
	})
	return nil
}

func (c *HTTPClient) healthCheckLoop() {
	defer c.healthWg.Done()

	ticker := time.NewTicker(c.config.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.healthCtx.Done():
			return
		case <-ticker.C:
			c.performHealthCheck()
		}
	}
}

func (c *HTTPClient) performHealthCheck() {
	ctx, cancel := context.WithTimeout(c.healthCtx, c.config.HealthTimeout)
	defer cancel()

	healthy := false
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.config.BaseURL, "/")+"/health", nil)
	if err == nil {
		resp, err := c.httpClient.Do(req)
		if err == nil {
			healthy = resp.StatusCode == http.StatusOK
			resp.Body.Close()
		}
	}

	if was := c.healthy.Swap(healthy); was != healthy {
		c.logger.Info("OCR service health changed", "healthy", healthy, "url", c.config.BaseURL)
	}
}

var _ Recognizer = (*HTTPClient)(nil)

// NoOp is a recognizer that never recognizes anything, used when no engine
// is configured.
type NoOp struct{}

// NewNoOp creates a no-operation recognizer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (NoOp) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	return "", ErrDisabled
}

func (NoOp) Available() bool { return false }

func (NoOp) Name() string { return "none" }

func (NoOp) Close() error { return nil }

var _ Recognizer = (*NoOp)(nil)

func encodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("ocr: nil image")
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
