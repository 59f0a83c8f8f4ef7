package ocr

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"github.com/corona10/goimagehash"
)

const (
	// DefaultMaxHashDistance is the Hamming distance at or below which two
	// captures count as the same picture. Small text captures that differ
	// in a few glyphs ("Player One" and "Player Two") can hash within one or
	// two bits of each other, so only identical hashes match by default.
	DefaultMaxHashDistance = 0

	cacheEntriesPerKey = 4
)

type cacheEntry struct {
	hash *goimagehash.ImageHash
	text string
}

// CachedRecognizer reuses the last recognized text when a capture is
// perceptually identical to a recent one of the same size and language.
type CachedRecognizer struct {
	next        Recognizer
	maxDistance int
	logger      *slog.Logger

	mu      sync.Mutex
	entries map[cacheKey][]cacheEntry
	hits    uint64
	misses  uint64
}

type cacheKey struct {
	size image.Point
	lang string
}

// NewCachedRecognizer wraps next with a perceptual-hash cache.
// A negative maxDistance selects DefaultMaxHashDistance.
func NewCachedRecognizer(next Recognizer, maxDistance int, logger *slog.Logger) *CachedRecognizer {
	if maxDistance < 0 {
		maxDistance = DefaultMaxHashDistance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRecognizer{
		next:        next,
		maxDistance: maxDistance,
		logger:      logger,
		entries:     make(map[cacheKey][]cacheEntry),
	}
}

// Recognize returns cached text for a near-identical capture, otherwise
// delegates and remembers the result. Errors are never cached.
func (c *CachedRecognizer) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	if img == nil {
		return c.next.Recognize(ctx, img, lang)
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return c.next.Recognize(ctx, img, lang)
	}
	key := cacheKey{size: img.Bounds().Size(), lang: lang}

	if text, ok := c.lookup(key, hash); ok {
		return text, nil
	}

	text, err := c.next.Recognize(ctx, img, lang)
	if err != nil {
		return "", err
	}
	c.store(key, hash, text)
	return text, nil
}

func (c *CachedRecognizer) lookup(key cacheKey, hash *goimagehash.ImageHash) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries[key] {
		dist, err := e.hash.Distance(hash)
		if err != nil {
			continue
		}
		if dist <= c.maxDistance {
			c.hits++
			c.logger.Debug("Reusing OCR result for similar capture", "distance", dist)
			return e.text, true
		}
	}
	c.misses++
	return "", false
}

func (c *CachedRecognizer) store(key cacheKey, hash *goimagehash.ImageHash, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := append([]cacheEntry{{hash: hash, text: text}}, c.entries[key]...)
	if len(list) > cacheEntriesPerKey {
		list = list[:cacheEntriesPerKey]
	}
	c.entries[key] = list
}

// Stats returns cache hit and miss counts.
func (c *CachedRecognizer) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Reset drops every cached result.
func (c *CachedRecognizer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey][]cacheEntry)
}

func (c *CachedRecognizer) Available() bool { return c.next.Available() }

func (c *CachedRecognizer) Name() string { return c.next.Name() + "+cache" }

func (c *CachedRecognizer) Close() error { return c.next.Close() }

var _ Recognizer = (*CachedRecognizer)(nil)
