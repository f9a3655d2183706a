package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"momentum/internal/card"
	"momentum/internal/coach"
	"momentum/internal/config"
	"momentum/internal/domain"
	"momentum/internal/domain/models"
	"momentum/internal/domain/repositories"
	"momentum/internal/domain/services"
	"momentum/internal/service/llm"
)

// RelayService implements services.StreamingService: one POST produces one
// SSE stream of delta / cta / structured_data / end records, with the full
// exchange persisted before the end record is emitted.
type RelayService struct {
	threads  repositories.ThreadRepository
	messages repositories.MessageRepository
	registry *llm.ProviderRegistry
	personas *coach.Registry
	titles   *TitleGenerator
	model    string
	logger   *slog.Logger
}

// NewRelayService creates the streaming relay.
func NewRelayService(
	threads repositories.ThreadRepository,
	messages repositories.MessageRepository,
	registry *llm.ProviderRegistry,
	personas *coach.Registry,
	titles *TitleGenerator,
	model string,
	logger *slog.Logger,
) *RelayService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayService{
		threads:  threads,
		messages: messages,
		registry: registry,
		personas: personas,
		titles:   titles,
		model:    model,
		logger:   logger,
	}
}

// Respond validates the request, persists the user message and returns a
// channel of stream records. Validation and thread lookup failures are
// returned synchronously before any record is produced. A mid-stream failure
// closes the channel without an end record: no end means the exchange may not
// be durable.
func (s *RelayService) Respond(ctx context.Context, req *services.RespondRequest) (<-chan models.StreamRecord, error) {
	content := strings.TrimSpace(req.Content)
	if err := validation.Validate(content,
		validation.Required.Error("content is required"),
		validation.Length(1, config.MaxMessageLength),
	); err != nil {
		return nil, fmt.Errorf("%w: content: %v", domain.ErrValidation, err)
	}
	if req.ThreadID == "" {
		return nil, fmt.Errorf("%w: threadId is required", domain.ErrValidation)
	}

	thread, err := s.threads.GetThread(ctx, req.ThreadID, req.UserID)
	if err != nil {
		return nil, err
	}

	provider, err := s.registry.ForModel(s.model)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}

	firstExchange := thread.Title == nil

	userMsg := &models.Message{
		ID:       uuid.NewString(),
		ThreadID: thread.ID,
		Role:     models.RoleUser,
		Content:  content,
	}
	if err := s.messages.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	history, err := s.messages.ListMessages(ctx, thread.ID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	persona := s.personas.Resolve(req.AgentType)
	genReq := &services.GenerateRequest{
		Messages:  toProviderMessages(history),
		Model:     s.model,
		System:    &persona.System,
		MaxTokens: 4096,
	}

	events, err := provider.StreamResponse(ctx, genReq)
	if err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}

	records := make(chan models.StreamRecord, 16)
	go s.run(ctx, events, records, thread, req, content, firstExchange)

	return records, nil
}

// run drains provider events into stream records. It owns the records
// channel and closes it when done.
func (s *RelayService) run(
	ctx context.Context,
	events <-chan services.StreamEvent,
	records chan<- models.StreamRecord,
	thread *models.Thread,
	req *services.RespondRequest,
	userContent string,
	firstExchange bool,
) {
	defer close(records)

	logger := s.logger.With("thread_id", thread.ID)

	var splitter card.Splitter
	for event := range events {
		switch {
		case event.Error != nil:
			logger.Error("provider stream failed", "error", event.Error)
			return

		case event.TextDelta != nil:
			if text := splitter.Feed(*event.TextDelta); text != "" {
				if !send(ctx, records, models.NewDeltaRecord(text)) {
					return
				}
			}

		case event.Metadata != nil:
			logger.Debug("stream complete",
				"model", event.Metadata.Model,
				"output_tokens", event.Metadata.OutputTokens,
				"stop_reason", event.Metadata.StopReason)
		}
	}

	tail, rawPayload, found := splitter.Finish()
	if tail != "" {
		if !send(ctx, records, models.NewDeltaRecord(tail)) {
			return
		}
	}

	var payload card.Payload
	if found {
		p, err := card.DecodePayload(rawPayload)
		if err != nil {
			// Malformed payload degrades to plain text silently.
			logger.Warn("card payload did not parse", "error", err)
		} else if p.Kind() != card.KindIgnored {
			payload = p
		} else {
			logger.Debug("card payload ignored", "payload", string(rawPayload))
		}
	}

	if payload != nil {
		if label, ok := s.personas.CTALabel(req.AgentType, payload.Kind()); ok {
			if !send(ctx, records, models.NewCTARecord(label)) {
				return
			}
		}
		if !send(ctx, records, models.NewStructuredDataRecord(card.Tagged{Payload: payload})) {
			return
		}
	}

	// Persist the assistant message verbatim, marker and payload included.
	// The end record is the durability signal, so everything below must
	// succeed before it is emitted.
	assistantMsg := &models.Message{
		ID:       uuid.NewString(),
		ThreadID: thread.ID,
		Role:     models.RoleAssistant,
		Content:  splitter.Content(),
	}
	if err := s.messages.CreateMessage(ctx, assistantMsg); err != nil {
		logger.Error("persist assistant message failed", "error", err)
		return
	}
	if err := s.threads.Touch(ctx, thread.ID); err != nil {
		logger.Warn("touch thread failed", "error", err)
	}

	if firstExchange && s.titles != nil {
		text, _ := card.Decode(splitter.Content())
		if err := s.titles.Generate(ctx, thread, req.UserID, userContent, text); err != nil {
			// Title generation is best effort; the thread just stays untitled.
			logger.Warn("title generation failed", "error", err)
		}
	}

	send(ctx, records, models.NewEndRecord())
}

// send delivers a record unless the consumer has gone away.
func send(ctx context.Context, records chan<- models.StreamRecord, rec models.StreamRecord) bool {
	select {
	case <-ctx.Done():
		return false
	case records <- rec:
		return true
	}
}

// toProviderMessages projects thread history onto provider messages.
// Assistant content keeps its embedded card payloads so the model sees what
// it previously proposed.
func toProviderMessages(history []models.Message) []services.Message {
	out := make([]services.Message, 0, len(history))
	for i := range history {
		out = append(out, services.Message{
			Role:    history[i].Role,
			Content: history[i].Content,
		})
	}
	return out
}
