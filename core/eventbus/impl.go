package eventbus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"textmacro-go/core/event"
)

// subscription represents a single event subscription.
type subscription struct {
	id         string
	handler    EventHandler
	regionName string // Empty string means subscribe to all events
}

// channelEventBus is a channel-based implementation of EventBus.
type channelEventBus struct {
	eventChan     chan event.Event
	subscriptions map[string]*subscription
	mu            sync.RWMutex
	sendMu        sync.RWMutex // guards eventChan against send-after-close
	closed        atomic.Bool
	wg            sync.WaitGroup
	nextID        atomic.Uint64
	dropped       atomic.Uint64
	logger        *slog.Logger
}

// Option configures the event bus.
type Option func(*channelEventBus)

// WithLogger sets the logger used for dropped events and handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *channelEventBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a new EventBus with the specified buffer size.
func New(bufferSize int, opts ...Option) EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	bus := &channelEventBus{
		eventChan:     make(chan event.Event, bufferSize),
		subscriptions: make(map[string]*subscription),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(bus)
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// Publish publishes an event to all subscribers.
func (b *channelEventBus) Publish(e event.Event) {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()

	if b.closed.Load() {
		return
	}

	// Non-blocking send; the monitor worker must never stall on a slow subscriber.
	select {
	case b.eventChan <- e:
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event dropped, bus buffer full", "event", e.EventName())
	}
}

// Subscribe subscribes to all events.
func (b *channelEventBus) Subscribe(handler EventHandler) string {
	return b.subscribe("", handler)
}

// SubscribeRegion subscribes to events from a specific region.
func (b *channelEventBus) SubscribeRegion(regionName string, handler EventHandler) string {
	return b.subscribe(regionName, handler)
}

func (b *channelEventBus) subscribe(regionName string, handler EventHandler) string {
	id := b.generateID()

	b.mu.Lock()
	b.subscriptions[id] = &subscription{
		id:         id,
		handler:    handler,
		regionName: regionName,
	}
	b.mu.Unlock()

	return id
}

// Unsubscribe removes a subscription by its ID.
func (b *channelEventBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	delete(b.subscriptions, subscriptionID)
	b.mu.Unlock()
}

// Dropped returns the number of events discarded because the buffer was full.
func (b *channelEventBus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close shuts down the event bus.
func (b *channelEventBus) Close() {
	b.sendMu.Lock()
	if b.closed.Swap(true) {
		b.sendMu.Unlock()
		return // Already closed
	}
	close(b.eventChan)
	b.sendMu.Unlock()

	b.wg.Wait()
}

// dispatch is the main event dispatch loop.
func (b *channelEventBus) dispatch() {
	defer b.wg.Done()

	for e := range b.eventChan {
		b.deliverEvent(e)
	}
}

// deliverEvent delivers an event to all matching subscribers.
func (b *channelEventBus) deliverEvent(e event.Event) {
	b.mu.RLock()
	// Copy subscriptions to avoid holding lock during handler execution
	subs := make([]*subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	var eventRegion string
	if re, ok := e.(event.RegionEvent); ok {
		eventRegion = re.RegionName()
	}

	for _, sub := range subs {
		if sub.regionName != "" {
			if eventRegion == "" || sub.regionName != eventRegion {
				continue
			}
		}

		// Catch panics to prevent one bad handler from affecting others
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Event handler panicked",
						"event", e.EventName(),
						"subscription", sub.id,
						"panic", r)
				}
			}()
			sub.handler(e)
		}()
	}
}

func (b *channelEventBus) generateID() string {
	return fmt.Sprintf("sub-%d", b.nextID.Add(1))
}
