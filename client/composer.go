package client

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrEmptyDraft means the draft was empty or whitespace; nothing is sent.
var ErrEmptyDraft = errors.New("draft is empty")

// ErrSendInFlight means a send is already running; the guard rejects the
// second submission instead of queueing it.
var ErrSendInFlight = errors.New("send already in flight")

// Composer owns the draft box for one conversation view. It rejects empty
// submissions, allows one in-flight send at a time, and handles the
// no-thread-yet case by creating the thread first, navigating, then sending
// the drafted message to the new thread.
type Composer struct {
	mu       sync.Mutex
	draft    string
	pending  bool
	threadID string

	client    *Client
	consumer  *Consumer
	agentType string

	// navigate is called when a send had to create its thread first, so the
	// surrounding view can route to it. May be nil.
	navigate func(threadID string)
}

// NewComposer creates a composer. threadID may be empty: the first send then
// creates the thread.
func NewComposer(c *Client, consumer *Consumer, threadID string, navigate func(string)) *Composer {
	return &Composer{
		client:   c,
		consumer: consumer,
		threadID: threadID,
		navigate: navigate,
	}
}

// SetDraft replaces the draft text.
func (cp *Composer) SetDraft(text string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.draft = text
}

// Draft returns the current draft text.
func (cp *Composer) Draft() string {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.draft
}

// SetAgentType selects the agent persona for subsequent sends.
func (cp *Composer) SetAgentType(agentType string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.agentType = agentType
}

// ThreadID returns the thread this composer posts to, empty before the first
// send creates one.
func (cp *Composer) ThreadID() string {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.threadID
}

// Send submits the draft and blocks until the response stream finishes.
// Callers drive it from their own goroutine; concurrent submissions are
// rejected with ErrSendInFlight rather than queued.
//
// The draft clears as soon as the submission is accepted. On failure it is
// restored so the user's text is never lost.
func (cp *Composer) Send(ctx context.Context) error {
	cp.mu.Lock()
	content := strings.TrimSpace(cp.draft)
	if content == "" {
		cp.mu.Unlock()
		return ErrEmptyDraft
	}
	if cp.pending {
		cp.mu.Unlock()
		return ErrSendInFlight
	}
	cp.pending = true
	cp.draft = ""
	agentType := cp.agentType
	threadID := cp.threadID
	cp.mu.Unlock()

	err := cp.send(ctx, threadID, content, agentType)

	cp.mu.Lock()
	cp.pending = false
	if err != nil && cp.draft == "" {
		cp.draft = content
	}
	cp.mu.Unlock()

	return err
}

func (cp *Composer) send(ctx context.Context, threadID, content, agentType string) error {
	// No thread yet: create it and navigate before the message goes out. The
	// draft rides along and is sent against the fresh thread, so the user
	// never has to resubmit.
	if threadID == "" {
		created, err := cp.client.CreateThread(ctx)
		if err != nil {
			return err
		}
		threadID = created

		cp.mu.Lock()
		cp.threadID = threadID
		navigate := cp.navigate
		cp.mu.Unlock()

		if navigate != nil {
			navigate(threadID)
		}
	}

	cp.consumer.Begin(content)

	records, err := cp.client.Respond(ctx, &RespondRequest{
		ThreadID:  threadID,
		Content:   content,
		AgentType: agentType,
	})
	if err != nil {
		// The stream never started; withdraw the optimistic echo.
		cp.consumer.abort(err)
		return err
	}

	return cp.consumer.Consume(records)
}
