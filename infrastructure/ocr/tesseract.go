//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// TesseractCompiled reports whether the Tesseract engine is linked in.
const TesseractCompiled = true

// Tesseract recognizes text with a local libtesseract through gosseract.
// A gosseract client is not safe for concurrent use, so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
	lang   string
}

// NewTesseract creates a Tesseract recognizer.
func NewTesseract() (*Tesseract, error) {
	client := gosseract.NewClient()
	if client == nil {
		return nil, fmt.Errorf("%w: tesseract client init failed", ErrUnavailable)
	}
	return &Tesseract{client: client}, nil
}

// Recognize runs OCR on img. lang uses Tesseract's "jpn+eng" form.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if lang != t.lang {
		if err := t.client.SetLanguage(strings.Split(lang, "+")...); err != nil {
			return "", fmt.Errorf("failed to set language %q: %w", lang, err)
		}
		t.lang = lang
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (t *Tesseract) Available() bool { return true }

func (t *Tesseract) Name() string { return "tesseract" }

// Close releases the native client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}

var _ Recognizer = (*Tesseract)(nil)
