package services

import (
	"context"
)

// Message is one conversation entry sent to an LLM provider.
type Message struct {
	Role    string // "user", "assistant" or "system"
	Content string
}

// GenerateRequest describes one completion request.
type GenerateRequest struct {
	Messages    []Message
	Model       string
	System      *string
	MaxTokens   int
	Temperature *float64
}

// GenerateResponse is a complete, non-streamed completion.
type GenerateResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// StreamMetadata carries final stream statistics after the last delta.
type StreamMetadata struct {
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// StreamEvent is one event emitted by a streaming provider. Exactly one
// field is set; a Metadata event is terminal on success, an Error event is
// terminal on failure.
type StreamEvent struct {
	TextDelta *string
	Metadata  *StreamMetadata
	Error     error
}

// LLMProvider generates coach responses. Implementations adapt one upstream
// API; the factory picks a provider by model name.
type LLMProvider interface {
	// Name returns the provider name.
	Name() string

	// SupportsModel returns true if this provider serves the given model.
	SupportsModel(model string) bool

	// GenerateResponse produces a complete response in one call.
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// StreamResponse produces a response incrementally. The returned channel
	// is closed after the terminal event.
	StreamResponse(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)
}
