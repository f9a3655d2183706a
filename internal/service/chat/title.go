package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"momentum/internal/config"
	"momentum/internal/domain/models"
	"momentum/internal/domain/repositories"
	"momentum/internal/domain/services"
	"momentum/internal/service/llm"
)

const titlePrompt = "Write a short title (at most six words) for a coaching conversation " +
	"that starts with the exchange below. Reply with the title only: no quotes, " +
	"no trailing punctuation."

// TitleGenerator names a thread after its first exchange. It asks a small
// model for a title and falls back to a truncation of the user's message when
// the model call fails.
type TitleGenerator struct {
	threads  repositories.ThreadRepository
	registry *llm.ProviderRegistry
	model    string
	logger   *slog.Logger
}

// NewTitleGenerator creates a title generator using the given model.
func NewTitleGenerator(
	threads repositories.ThreadRepository,
	registry *llm.ProviderRegistry,
	model string,
	logger *slog.Logger,
) *TitleGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TitleGenerator{
		threads:  threads,
		registry: registry,
		model:    model,
		logger:   logger,
	}
}

// Generate produces and stores a title for the thread. Returns an error only
// when the store write fails; a failed model call just falls back.
func (g *TitleGenerator) Generate(ctx context.Context, thread *models.Thread, userID, userContent, assistantText string) error {
	title := g.fromModel(ctx, userContent, assistantText)
	if title == "" {
		title = fallbackTitle(userContent)
	}
	if title == "" {
		return nil
	}

	if err := g.threads.SetTitle(ctx, thread.ID, userID, title); err != nil {
		return fmt.Errorf("store title: %w", err)
	}
	thread.Title = &title
	return nil
}

func (g *TitleGenerator) fromModel(ctx context.Context, userContent, assistantText string) string {
	provider, err := g.registry.ForModel(g.model)
	if err != nil {
		g.logger.Debug("no provider for title model", "model", g.model, "error", err)
		return ""
	}

	system := titlePrompt
	resp, err := provider.GenerateResponse(ctx, &services.GenerateRequest{
		Messages: []services.Message{
			{Role: models.RoleUser, Content: userContent},
			{Role: models.RoleAssistant, Content: assistantText},
			{Role: models.RoleUser, Content: "Title this conversation."},
		},
		Model:     g.model,
		System:    &system,
		MaxTokens: 32,
	})
	if err != nil {
		g.logger.Debug("title model call failed", "error", err)
		return ""
	}

	return sanitizeTitle(resp.Text)
}

// sanitizeTitle normalizes model output into a storable title.
func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	return truncate(strings.TrimSpace(title), config.MaxThreadTitleLength)
}

// fallbackTitle derives a title from the user's first message.
func fallbackTitle(userContent string) string {
	return truncate(strings.TrimSpace(userContent), 60)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
