// Package event implements the in-process notification bus.
//
// The manager publishes an event after each successful state change,
// in order: durable write, cache update, then notification. Delivery
// is synchronous on the mutating goroutine so observers see events in
// the order the changes were applied. Handlers must not call back into
// the manager.
package event

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event types published by the manager.
const (
	TokenCreated  = "token-created"
	TokenUsed     = "token-used"
	FollowCreated = "follow-created"
	FollowUpdated = "follow-updated"
)

// Event is a single notification.
type Event struct {
	// Type is one of the event type constants.
	Type string `json:"type"`

	// At is when the change was applied.
	At time.Time `json:"at"`

	// Payload carries event-specific fields. Token secrets never
	// appear here; token-bearing events carry the masked form.
	Payload map[string]any `json:"payload,omitempty"`
}

// Handler receives published events. Called synchronously.
type Handler func(Event)

// Subscription identifies a registered handler.
type Subscription string

// Bus dispatches events to registered handlers. Safe for concurrent
// use. The zero value is not usable; call NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Subscription]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Subscription]Handler)}
}

// Subscribe registers a handler and returns its subscription handle.
func (b *Bus) Subscribe(fn Handler) Subscription {
	sub := Subscription(ulid.MustNew(ulid.Now(), rand.Reader).String())

	b.mu.Lock()
	b.handlers[sub] = fn
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes a handler. Returns false if the subscription is
// unknown.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.handlers[sub]; !ok {
		return false
	}
	delete(b.handlers, sub)
	return true
}

// Publish delivers the event to every registered handler.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, fn := range b.handlers {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(evt)
	}
}

// Count returns the number of registered handlers.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
