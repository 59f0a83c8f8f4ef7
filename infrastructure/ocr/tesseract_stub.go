//go:build !tesseract

package ocr

import (
	"context"
	"fmt"
	"image"
)

// TesseractCompiled reports whether the Tesseract engine is linked in.
const TesseractCompiled = false

// Tesseract is unavailable in builds without the tesseract tag.
type Tesseract struct{}

// NewTesseract always fails; rebuild with -tags tesseract to link libtesseract.
func NewTesseract() (*Tesseract, error) {
	return nil, fmt.Errorf("%w: built without the tesseract tag", ErrUnavailable)
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	return "", ErrUnavailable
}

func (t *Tesseract) Available() bool { return false }

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) Close() error { return nil }

var _ Recognizer = (*Tesseract)(nil)
