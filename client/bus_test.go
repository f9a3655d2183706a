package client

import (
	"testing"
)

func TestBusDeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus()

	var deltas []string
	bus.Subscribe(TopicDelta, func(e Event) {
		deltas = append(deltas, e.Payload.(string))
	})

	var phases int
	bus.Subscribe(TopicPhase, func(Event) { phases++ })

	bus.Publish(Event{Topic: TopicDelta, ThreadID: "t1", Payload: "Hello"})
	bus.Publish(Event{Topic: TopicDelta, ThreadID: "t1", Payload: " world"})
	bus.Publish(Event{Topic: TopicStreamEnd, ThreadID: "t1"})

	if len(deltas) != 2 || deltas[0] != "Hello" || deltas[1] != " world" {
		t.Fatalf("deltas = %v", deltas)
	}
	if phases != 0 {
		t.Fatalf("phase handler fired %d times for unrelated topics", phases)
	}
}

func TestBusFanOut(t *testing.T) {
	bus := NewBus()

	first, second := 0, 0
	bus.Subscribe(TopicCard, func(Event) { first++ })
	bus.Subscribe(TopicCard, func(Event) { second++ })

	bus.Publish(Event{Topic: TopicCard, ThreadID: "t1"})

	if first != 1 || second != 1 {
		t.Fatalf("handlers fired %d/%d times, want 1/1", first, second)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(TopicCTA, func(Event) { calls++ })

	bus.Publish(Event{Topic: TopicCTA})
	unsubscribe()
	bus.Publish(Event{Topic: TopicCTA})

	if calls != 1 {
		t.Fatalf("handler fired %d times after unsubscribe, want 1", calls)
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	// Must not panic.
	bus.Publish(Event{Topic: TopicStreamError, Payload: ErrStreamFailed})
}
