/*
Package bus is the client-side push-event bus.

The connection manager publishes every pushed event under its event name; stores
subscribe independently, so neither owns the other. Subscriptions survive reconnects
because they belong to the bus, not to a socket.
*/
package bus

import (
	"encoding/json"
	"sync"
)

// Handler receives the raw event payload.
type Handler func(payload json.RawMessage)

// Subscription identifies one registered handler.
type Subscription struct {
	topic string
	id    uint64
}

type entry struct {
	id      uint64
	handler Handler
}

// Bus dispatches payloads to topic subscribers.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	topics map[string][]entry
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{topics: make(map[string][]entry)}
}

// Subscribe registers h for topic.
func (b *Bus) Subscribe(topic string, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.topics[topic] = append(b.topics[topic], entry{id: b.nextID, handler: h})

	return Subscription{topic: topic, id: b.nextID}
}

// Unsubscribe removes the handler behind sub. It reports whether it was still registered.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.topics[sub.topic]
	for i, e := range entries {
		if e.id != sub.id {
			continue
		}

		entries = append(entries[:i:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(b.topics, sub.topic)
		} else {
			b.topics[sub.topic] = entries
		}
		return true
	}

	return false
}

// Publish calls every handler of topic in subscription order on the calling goroutine.
// Handlers may subscribe or unsubscribe; changes apply from the next Publish.
func (b *Bus) Publish(topic string, payload json.RawMessage) {
	b.mu.Lock()
	entries := b.topics[topic]
	b.mu.Unlock()

	for _, e := range entries {
		e.handler(payload)
	}
}

// Clear removes every handler of topic.
func (b *Bus) Clear(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.topics, topic)
}

// Count returns the number of handlers registered for topic.
func (b *Bus) Count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.topics[topic])
}
