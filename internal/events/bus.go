package events

import "sync"

// Type identifies an event on the bus.
type Type string

const (
	// JobsChanged fires after every successful job mutation. The payload
	// is the non-archived job snapshot for the current env.
	JobsChanged Type = "jobs_changed"

	// ConsumerStatusChanged fires when a consumer is started or stopped.
	// The payload is the queue-name to status map.
	ConsumerStatusChanged Type = "consumer_status_changed"
)

// Event is one message on the bus.
type Event struct {
	Type    Type
	Payload interface{}
}

// Handler receives published events.
type Handler func(Event)

// Bus distributes events to subscribed handlers. Publishing is
// fire-and-forget: handlers run on the publisher's goroutine and must not
// block. A Bus with no subscribers drops events silently, which keeps
// durability decoupled from delivery.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	closed   bool
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers an event to every subscribed handler.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return
	}
	for _, h := range handlers {
		h(e)
	}
}

// Close stops delivery. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
}
