package client

import (
	"sync"
)

// Event is one notification published on the bus.
type Event struct {
	Topic    string
	ThreadID string
	Payload  any
}

// Bus topics.
const (
	TopicDelta       = "chat.delta"        // payload: string (text fragment)
	TopicCTA         = "chat.cta"          // payload: string (action label)
	TopicCard        = "chat.card"         // payload: decoded card payload
	TopicStreamEnd   = "chat.stream_end"   // payload: nil
	TopicStreamError = "chat.stream_error" // payload: error
	TopicPhase       = "chat.phase"        // payload: Phase
)

// Bus is a small synchronous pub/sub hub. Components subscribe to topics
// instead of reaching into each other's state, so a consumer and any number
// of views can react to the same stream without shared globals.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]func(Event))}
}

// Subscribe registers a handler for a topic and returns an unsubscribe
// function. Handlers run synchronously on the publishing goroutine.
func (b *Bus) Subscribe(topic string, handler func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func(Event))
	}
	b.subs[topic][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish delivers an event to every handler subscribed to its topic.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs[event.Topic]))
	for _, h := range b.subs[event.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
