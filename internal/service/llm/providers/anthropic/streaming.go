package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"momentum/internal/domain/services"
)

// StreamResponse generates a streaming response from Claude.
// Returns a channel that emits StreamEvent as deltas arrive from the API.
func (p *Provider) StreamResponse(ctx context.Context, req *services.GenerateRequest) (<-chan services.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", req.Model)
	}

	apiParams := buildParams(req)

	// Buffered to prevent blocking the SDK event loop
	eventChan := make(chan services.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		stream := p.client.Messages.NewStreaming(ctx, apiParams)

		// Accumulator for final message metadata
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				eventChan <- services.StreamEvent{
					Error: fmt.Errorf("failed to accumulate message: %w", err),
				}
				return
			}

			streamEvent, ok := transformStreamEvent(event)
			if !ok {
				continue
			}

			select {
			case <-ctx.Done():
				eventChan <- services.StreamEvent{Error: ctx.Err()}
				return
			case eventChan <- streamEvent:
			}
		}

		if err := stream.Err(); err != nil {
			eventChan <- services.StreamEvent{
				Error: fmt.Errorf("anthropic streaming error: %w", err),
			}
			return
		}

		eventChan <- services.StreamEvent{
			Metadata: &services.StreamMetadata{
				Model:        string(message.Model),
				InputTokens:  int(message.Usage.InputTokens),
				OutputTokens: int(message.Usage.OutputTokens),
				StopReason:   string(message.StopReason),
			},
		}
	}()

	return eventChan, nil
}

// transformStreamEvent converts an Anthropic streaming event to a domain
// StreamEvent. Only text deltas are surfaced; block boundaries and
// message-level events carry nothing the relay needs mid-stream.
func transformStreamEvent(event anthropic.MessageStreamEventUnion) (services.StreamEvent, bool) {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if e.Delta.Type == "text_delta" {
			text := e.Delta.Text
			return services.StreamEvent{TextDelta: &text}, true
		}
		return services.StreamEvent{}, false

	default:
		return services.StreamEvent{}, false
	}
}
