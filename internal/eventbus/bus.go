// Package eventbus implements a minimal synchronous publish/subscribe bus
// for decoupling the core pipeline from observers (dashboards, CLI,
// ledger mirrors). Suited to a single-threaded main loop: publish calls
// every subscriber in order on the caller's goroutine, isolating each
// subscriber's panic so one failure never blocks the others.
package eventbus

import (
	"sync"

	"go.uber.org/zap"
)

// Standard topics published once per tick by the Orchestrator.
const (
	TopicMarketBook   = "market.book"
	TopicMarketTrades = "market.trades"
	TopicFeatures     = "features"
	TopicOAD          = "oad"
	TopicVAD          = "vad"
	TopicStress       = "stress"
	TopicRegime       = "regime"
	TopicSignal       = "signal"
	TopicRisk         = "risk"
	TopicPlan         = "plan"
	TopicFill         = "fill"
	TopicLedger       = "ledger"
	TopicPositions    = "positions"
	TopicAccount      = "account"
)

// Handler receives a published payload. It must not block.
type Handler func(payload any)

// Bus is a synchronous topic-keyed pub/sub registry.
type Bus struct {
	mu          sync.Mutex
	logger      *zap.Logger
	subscribers map[string][]Handler
	eventCount  int64
}

// New constructs an empty Bus.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger, subscribers: make(map[string][]Handler)}
}

// Subscribe registers handler for topic.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish calls every handler registered for topic, in subscription order.
// A handler that panics is recovered and logged; its panic never reaches
// the caller or other handlers. Returns the number of handlers invoked
// without panicking.
func (b *Bus) Publish(topic string, payload any) int {
	b.mu.Lock()
	handlers := make([]Handler, len(b.subscribers[topic]))
	copy(handlers, b.subscribers[topic])
	b.eventCount++
	b.mu.Unlock()

	if len(handlers) == 0 {
		return 0
	}

	success := 0
	for _, h := range handlers {
		if b.callSafely(topic, h, payload) {
			success++
		}
	}
	return success
}

func (b *Bus) callSafely(topic string, h Handler, payload any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("eventbus_handler_panicked", zap.String("topic", topic), zap.Any("recover", r))
			ok = false
		}
	}()
	h(payload)
	return true
}

// Clear removes all subscribers for topic, or every topic if topic is "".
func (b *Bus) Clear(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == "" {
		b.subscribers = make(map[string][]Handler)
		return
	}
	delete(b.subscribers, topic)
}

// SubscriberCount returns the number of handlers registered for topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[topic])
}

// EventCount returns the total number of Publish calls made so far.
func (b *Bus) EventCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eventCount
}
