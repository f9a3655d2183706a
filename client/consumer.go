package client

import (
	"errors"
	"strings"
	"sync"
	"time"

	"momentum/internal/card"
	"momentum/internal/domain/models"
)

// Phase is the consumer's position in the response lifecycle.
type Phase int

const (
	// PhaseIdle means no exchange is in flight.
	PhaseIdle Phase = iota
	// PhaseThinking means the request was sent but no delta has arrived yet.
	PhaseThinking
	// PhaseStreaming means deltas are arriving.
	PhaseStreaming
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseThinking:
		return "thinking"
	case PhaseStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

var (
	// ErrStalled means no record arrived within the stall timeout.
	ErrStalled = errors.New("stream stalled")
	// ErrStreamFailed means the stream closed without an end record, so the
	// exchange may not be durable on the server.
	ErrStreamFailed = errors.New("stream failed before end")
)

// DefaultStallTimeout is how long the consumer waits between records before
// giving up on the stream. Providers send keep-alives through the relay far
// more often than this, so a stall this long means the stream is dead.
const DefaultStallTimeout = 45 * time.Second

// defaultEchoWindow bounds how old a server message can be and still confirm
// the optimistic echo under strict reconciliation.
const defaultEchoWindow = 2 * time.Minute

// Consumer drives one thread's view of the conversation: the message list,
// the optimistic echo for a just-sent message, and the in-flight response
// assembled from stream records. All cross-component notification goes
// through the bus; nothing here is shared mutable state.
type Consumer struct {
	mu  sync.Mutex
	bus *Bus

	threadID string
	phase    Phase

	// session counts exchanges. Records and failures carry the session they
	// belong to; anything from a superseded session is dropped.
	session int

	// In-flight response slots. Begin resets all of them, so records from an
	// abandoned stream can never bleed into the next exchange.
	text    strings.Builder
	cta     string
	payload card.Payload

	messages   []models.Message
	optimistic *models.Message

	stallTimeout time.Duration
	strictEcho   bool
	echoWindow   time.Duration
	now          func() time.Time
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithStallTimeout overrides the stall timeout. Zero disables stall detection.
func WithStallTimeout(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.stallTimeout = d }
}

// WithStrictEcho makes reconciliation clear the optimistic echo only when a
// persisted message matches it by role, content and recency. The default
// clears it once the refetched list is non-empty and no stream is in flight.
func WithStrictEcho() ConsumerOption {
	return func(c *Consumer) { c.strictEcho = true }
}

// NewConsumer creates a consumer for one thread.
func NewConsumer(threadID string, bus *Bus, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		bus:          bus,
		threadID:     threadID,
		phase:        PhaseIdle,
		stallTimeout: DefaultStallTimeout,
		echoWindow:   defaultEchoWindow,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase returns the current lifecycle phase.
func (c *Consumer) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Text returns the streamed response text assembled so far.
func (c *Consumer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text.String()
}

// CTALabel returns the call-to-action label, if one arrived.
func (c *Consumer) CTALabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cta
}

// Card returns the structured card payload, if one arrived.
func (c *Consumer) Card() card.Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload
}

// Messages returns the current view of the thread, optimistic echo included.
func (c *Consumer) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Begin starts an exchange: the user's message appears immediately as an
// optimistic echo and every in-flight slot is reset. A begin while a stream
// is mid-flight supersedes it: transient slots reset, the prior unconfirmed
// echo is withdrawn, and records still arriving from the old stream are
// dropped. Overlapping sessions never merge.
func (c *Consumer) Begin(userContent string) {
	c.mu.Lock()

	c.withdrawEchoLocked()
	c.session++
	c.phase = PhaseThinking
	c.text.Reset()
	c.cta = ""
	c.payload = nil

	echo := models.Message{
		ID:        "optimistic",
		ThreadID:  c.threadID,
		Role:      models.RoleUser,
		Content:   userContent,
		CreatedAt: c.now(),
	}
	c.optimistic = &echo
	c.messages = append(c.messages, echo)
	c.mu.Unlock()

	c.publish(Event{Topic: TopicPhase, ThreadID: c.threadID, Payload: PhaseThinking})
}

// Consume drains one stream. It returns nil after the end record, ErrStalled
// when records stop arriving, and ErrStreamFailed when the channel closes
// without an end record. A zero stall timeout disables the stall check.
// Consume serves the session current at the time it is called; once a later
// Begin supersedes it, its remaining records are drained and dropped.
func (c *Consumer) Consume(records <-chan models.StreamRecord) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if c.stallTimeout <= 0 {
		for rec := range records {
			if done := c.apply(session, rec); done {
				return nil
			}
		}
		c.fail(session, ErrStreamFailed)
		return ErrStreamFailed
	}

	stall := time.NewTimer(c.stallTimeout)
	defer stall.Stop()

	for {
		select {
		case <-stall.C:
			c.fail(session, ErrStalled)
			return ErrStalled

		case rec, ok := <-records:
			if !ok {
				c.fail(session, ErrStreamFailed)
				return ErrStreamFailed
			}
			if !stall.Stop() {
				<-stall.C
			}
			stall.Reset(c.stallTimeout)

			if done := c.apply(session, rec); done {
				return nil
			}
		}
	}
}

// apply folds one record into the consumer state. Returns true on end.
// Events are published after the lock is released so bus handlers can safely
// read consumer state.
func (c *Consumer) apply(session int, rec models.StreamRecord) bool {
	var events []Event
	done := false

	c.mu.Lock()
	if session != c.session {
		// Superseded stream; drop the record, stop on its end.
		c.mu.Unlock()
		return rec.Type == models.StreamEventEnd
	}
	switch rec.Type {
	case models.StreamEventDelta:
		if c.phase != PhaseStreaming {
			c.phase = PhaseStreaming
			events = append(events, Event{Topic: TopicPhase, ThreadID: c.threadID, Payload: PhaseStreaming})
		}
		c.text.WriteString(rec.Content)
		events = append(events, Event{Topic: TopicDelta, ThreadID: c.threadID, Payload: rec.Content})

	case models.StreamEventCTA:
		c.cta = rec.Label
		events = append(events, Event{Topic: TopicCTA, ThreadID: c.threadID, Payload: rec.Label})

	case models.StreamEventStructuredData:
		if payload, ok := rec.Data.(card.Payload); ok && payload.Kind() != card.KindIgnored {
			// At most one card wins; a later record replaces an earlier one.
			c.payload = payload
			events = append(events, Event{Topic: TopicCard, ThreadID: c.threadID, Payload: payload})
		}

	case models.StreamEventEnd:
		events = c.finishLocked()
		done = true
	}
	c.mu.Unlock()

	for _, e := range events {
		c.publish(e)
	}
	return done
}

// finishLocked completes a successful exchange: the assembled response joins
// the message list and the consumer returns to idle. The end record means
// the server persisted the exchange, so the echo is no longer provisional.
func (c *Consumer) finishLocked() []Event {
	c.messages = append(c.messages, models.Message{
		ID:        "streamed",
		ThreadID:  c.threadID,
		Role:      models.RoleAssistant,
		Content:   c.text.String(),
		CreatedAt: c.now(),
	})
	c.optimistic = nil
	c.phase = PhaseIdle
	return []Event{
		{Topic: TopicStreamEnd, ThreadID: c.threadID},
		{Topic: TopicPhase, ThreadID: c.threadID, Payload: PhaseIdle},
	}
}

// fail aborts the given session's exchange: the optimistic echo is withdrawn
// because the exchange may not be durable, and the consumer returns to idle.
// No-op when the session has already been superseded.
func (c *Consumer) fail(session int, cause error) {
	c.mu.Lock()
	if session != c.session {
		c.mu.Unlock()
		return
	}

	c.withdrawEchoLocked()
	c.phase = PhaseIdle
	c.mu.Unlock()

	c.publish(Event{Topic: TopicStreamError, ThreadID: c.threadID, Payload: cause})
	c.publish(Event{Topic: TopicPhase, ThreadID: c.threadID, Payload: PhaseIdle})
}

// abort fails the current session, e.g. when the relay call is rejected
// before any record flows.
func (c *Consumer) abort(cause error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	c.fail(session, cause)
}

// withdrawEchoLocked removes the unconfirmed optimistic echo from the view.
func (c *Consumer) withdrawEchoLocked() {
	if c.optimistic == nil {
		return
	}
	kept := c.messages[:0]
	for _, m := range c.messages {
		if m.ID != c.optimistic.ID {
			kept = append(kept, m)
		}
	}
	c.messages = kept
	c.optimistic = nil
}

// Reconcile replaces the local view with the server's message list. The
// optimistic echo is cleared only once the refetched list is non-empty and
// no stream is in flight; a refetch landing mid-flight keeps the echo at the
// tail so the user's message never vanishes from the view. Under strict mode
// the echo is cleared only when a persisted message confirms it.
func (c *Consumer) Reconcile(server []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = make([]models.Message, len(server))
	copy(c.messages, server)

	if c.optimistic == nil {
		return
	}

	if c.strictEcho {
		if c.echoConfirmedLocked(server) {
			c.optimistic = nil
			return
		}
		c.messages = append(c.messages, *c.optimistic)
		return
	}

	if len(server) > 0 && c.phase == PhaseIdle {
		c.optimistic = nil
		return
	}
	c.messages = append(c.messages, *c.optimistic)
}

// echoConfirmedLocked reports whether a recent persisted user message matches
// the optimistic echo.
func (c *Consumer) echoConfirmedLocked(server []models.Message) bool {
	for i := len(server) - 1; i >= 0; i-- {
		m := server[i]
		if m.Role != models.RoleUser || m.Content != c.optimistic.Content {
			continue
		}
		if c.now().Sub(m.CreatedAt) <= c.echoWindow {
			return true
		}
	}
	return false
}

func (c *Consumer) publish(event Event) {
	if c.bus != nil {
		c.bus.Publish(event)
	}
}
