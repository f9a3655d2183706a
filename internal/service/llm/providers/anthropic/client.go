// Package anthropic adapts the Anthropic messages API to the LLMProvider
// interface.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"momentum/internal/domain/models"
	"momentum/internal/domain/services"
)

// Provider implements the LLMProvider interface for Anthropic (Claude) models.
type Provider struct {
	client *anthropic.Client
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{
		client: &client,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// SupportsModel returns true if this provider supports the given model.
// Anthropic models start with "claude-"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// GenerateResponse generates a complete response from Claude.
func (p *Provider) GenerateResponse(ctx context.Context, req *services.GenerateRequest) (*services.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", req.Model)
	}

	apiParams := buildParams(req)

	message, err := p.client.Messages.New(ctx, apiParams)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &services.GenerateResponse{
		Text:         sb.String(),
		Model:        string(message.Model),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
		StopReason:   string(message.StopReason),
	}, nil
}

// buildParams converts a domain request into Anthropic API parameters.
// The messages API only accepts user and assistant roles, so system-role
// entries from thread history are folded into the system prompt in order.
func buildParams(req *services.GenerateRequest) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var systemParts []string
	if req.System != nil && *req.System != "" {
		systemParts = append(systemParts, *req.System)
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case models.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case models.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case models.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		}
	}

	apiParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	if req.Temperature != nil {
		apiParams.Temperature = anthropic.Float(*req.Temperature)
	}

	if len(systemParts) > 0 {
		apiParams.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: strings.Join(systemParts, "\n\n"),
			},
		}
	}

	return apiParams
}
