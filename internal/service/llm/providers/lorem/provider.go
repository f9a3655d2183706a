// Package lorem is a mock LLM provider that generates lorem ipsum text.
// Used for development and testing without real API keys.
package lorem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	"momentum/internal/card"
	"momentum/internal/domain/services"
)

// Provider generates lorem ipsum responses. Model names tune its behavior:
//   - lorem-slow / lorem-medium / lorem-fast control streaming speed
//   - lorem-card appends a habit_completion card after the payload marker,
//     so the full delta-then-card path can be exercised locally
type Provider struct {
	generator *loremgen.Lorem
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// getStreamDelay returns the delay between words based on the model name.
func getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond // 2 words/second
	}
	if strings.Contains(model, "fast") {
		return 33 * time.Millisecond // 30 words/second
	}
	return 100 * time.Millisecond // default: 10 words/second
}

func emitsCard(model string) bool {
	return strings.Contains(model, "card")
}

// GenerateResponse generates a complete lorem ipsum response in one call.
func (p *Provider) GenerateResponse(ctx context.Context, req *services.GenerateRequest) (*services.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	select {
	case <-time.After(200 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	text := p.generator.Paragraph(2, 4)
	if emitsCard(req.Model) {
		text += card.Marker + mockCardJSON()
	}

	return &services.GenerateResponse{
		Text:         text,
		Model:        req.Model,
		InputTokens:  p.estimateTokens(req.Messages),
		OutputTokens: len(strings.Fields(text)),
		StopReason:   "end_turn",
	}, nil
}

// StreamResponse streams a lorem ipsum response word by word. The payload
// marker, when emitted, is deliberately split across two deltas so consumers
// must handle markers that straddle token boundaries.
func (p *Provider) StreamResponse(ctx context.Context, req *services.GenerateRequest) (<-chan services.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	eventChan := make(chan services.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		delay := getStreamDelay(req.Model)
		text := p.generator.Paragraph(1, 3)
		words := strings.Fields(text)

		sent := 0
		for _, word := range words {
			delta := word + " "
			if !p.send(ctx, eventChan, delta) {
				return
			}
			sent++
			time.Sleep(delay)
		}

		if emitsCard(req.Model) {
			payload := card.Marker + mockCardJSON()
			mid := len(card.Marker) / 2
			for _, delta := range []string{payload[:mid], payload[mid:]} {
				if !p.send(ctx, eventChan, delta) {
					return
				}
				time.Sleep(delay)
			}
			sent += len(strings.Fields(payload))
		}

		eventChan <- services.StreamEvent{
			Metadata: &services.StreamMetadata{
				Model:        req.Model,
				InputTokens:  p.estimateTokens(req.Messages),
				OutputTokens: sent,
				StopReason:   "end_turn",
			},
		}
	}()

	return eventChan, nil
}

func (p *Provider) send(ctx context.Context, eventChan chan<- services.StreamEvent, delta string) bool {
	select {
	case <-ctx.Done():
		eventChan <- services.StreamEvent{Error: ctx.Err()}
		return false
	case eventChan <- services.StreamEvent{TextDelta: &delta}:
		return true
	}
}

// mockCardJSON renders a fixed habit_completion card payload.
func mockCardJSON() string {
	b, _ := json.Marshal(map[string]any{
		"type":    string(card.KindHabitCompletion),
		"habit":   map[string]any{"title": "Morning run", "streak": 3},
		"message": "Nice work!",
	})
	return string(b)
}

// estimateTokens estimates the token count for a list of messages.
// Uses word count as a rough approximation.
func (p *Provider) estimateTokens(messages []services.Message) int {
	totalWords := 0
	for _, msg := range messages {
		totalWords += len(strings.Fields(msg.Content))
	}
	return totalWords
}
