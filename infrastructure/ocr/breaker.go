package ocr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync/atomic"
	"time"
)

// BreakerState represents circuit breaker state.
type BreakerState uint32

const (
	BreakerClosed   BreakerState = iota // Normal operation
	BreakerOpen                         // Failing fast
	BreakerHalfOpen                     // Testing recovery
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("ocr: circuit breaker open")

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before a trial call.
	Cooldown time.Duration
	// HalfOpenSuccesses closes a half-open breaker after this many successes.
	HalfOpenSuccesses int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Threshold <= 0 {
		c.Threshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 10 * time.Second
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = 1
	}
	return c
}

// Breaker implements the circuit breaker pattern with atomic state.
type Breaker struct {
	cfg         BreakerConfig
	logger      *slog.Logger
	now         func() time.Time
	state       atomic.Uint32
	failures    atomic.Int32
	successes   atomic.Int32
	lastFailure atomic.Int64 // unix nano
}

// NewBreaker creates a breaker.
func NewBreaker(cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Breaker{cfg: cfg.withDefaults(), logger: logger, now: time.Now}
	b.state.Store(uint32(BreakerClosed))
	return b
}

// Allow returns nil if a call may proceed.
func (b *Breaker) Allow() error {
	if BreakerState(b.state.Load()) == BreakerOpen {
		if b.cooledDown() {
			b.transition(BreakerHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	}
	return nil
}

// Success records a successful call.
func (b *Breaker) Success() {
	switch BreakerState(b.state.Load()) {
	case BreakerHalfOpen:
		if b.successes.Add(1) >= int32(b.cfg.HalfOpenSuccesses) {
			b.transition(BreakerClosed)
		}
	case BreakerClosed:
		b.failures.Store(0)
	}
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.lastFailure.Store(b.now().UnixNano())
	count := b.failures.Add(1)

	switch BreakerState(b.state.Load()) {
	case BreakerHalfOpen:
		b.transition(BreakerOpen)
	case BreakerClosed:
		if count >= int32(b.cfg.Threshold) {
			b.transition(BreakerOpen)
		}
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	return BreakerState(b.state.Load())
}

func (b *Breaker) transition(to BreakerState) {
	from := BreakerState(b.state.Swap(uint32(to)))
	if from == to {
		return
	}

	switch to {
	case BreakerClosed:
		b.failures.Store(0)
		b.successes.Store(0)
		b.logger.Info("OCR circuit breaker closed")
	case BreakerOpen:
		b.successes.Store(0)
		b.logger.Warn("OCR circuit breaker opened", "failures", b.failures.Load(), "cooldown", b.cfg.Cooldown)
	case BreakerHalfOpen:
		b.successes.Store(0)
		b.logger.Info("OCR circuit breaker half-open")
	}
}

func (b *Breaker) cooledDown() bool {
	last := b.lastFailure.Load()
	if last == 0 {
		return true
	}
	return b.now().Sub(time.Unix(0, last)) > b.cfg.Cooldown
}

// GuardedRecognizer fails fast while its breaker is open. Context
// cancellation does not count as an engine failure.
type GuardedRecognizer struct {
	next    Recognizer
	breaker *Breaker
}

// WithBreaker wraps next with circuit breaker protection.
func WithBreaker(next Recognizer, breaker *Breaker) *GuardedRecognizer {
	return &GuardedRecognizer{next: next, breaker: breaker}
}

// Recognize implements Recognizer.
func (g *GuardedRecognizer) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	if err := g.breaker.Allow(); err != nil {
		return "", err
	}
	text, err := g.next.Recognize(ctx, img, lang)
	if err != nil {
		if ctx.Err() == nil {
			g.breaker.Failure()
		}
		return "", err
	}
	g.breaker.Success()
	return text, nil
}

// Available reports the wrapped engine's availability.
func (g *GuardedRecognizer) Available() bool {
	return g.next.Available()
}

func (g *GuardedRecognizer) Name() string { return g.next.Name() }

func (g *GuardedRecognizer) Close() error { return g.next.Close() }

var _ Recognizer = (*GuardedRecognizer)(nil)
