// Package chat implements the thread service and the streaming relay.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"momentum/internal/config"
	"momentum/internal/domain"
	"momentum/internal/domain/models"
	"momentum/internal/domain/repositories"
	"momentum/internal/domain/services"
)

// ThreadServiceImpl implements services.ThreadService.
type ThreadServiceImpl struct {
	threads   repositories.ThreadRepository
	messages  repositories.MessageRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewThreadService creates a new thread service.
func NewThreadService(
	threads repositories.ThreadRepository,
	messages repositories.MessageRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.ThreadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThreadServiceImpl{
		threads:   threads,
		messages:  messages,
		txManager: txManager,
		logger:    logger,
	}
}

// CreateThread creates an empty thread. The title stays nil until title
// generation runs after the first exchange.
func (s *ThreadServiceImpl) CreateThread(ctx context.Context, req *services.CreateThreadRequest) (*models.Thread, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	thread := &models.Thread{
		ID:     uuid.NewString(),
		UserID: req.UserID,
	}
	if err := s.threads.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}

	s.logger.Info("thread created", "thread_id", thread.ID, "user_id", req.UserID)
	return thread, nil
}

// ListThreads returns the user's live threads as list summaries, most
// recently updated first.
func (s *ThreadServiceImpl) ListThreads(ctx context.Context, userID string) ([]models.ThreadSummary, error) {
	threads, err := s.threads.ListThreads(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	summaries := make([]models.ThreadSummary, 0, len(threads))
	for i := range threads {
		summaries = append(summaries, threads[i].Summary())
	}
	return summaries, nil
}

// DeleteThread soft-deletes a thread. Deleting an absent or already-deleted
// thread returns ErrNotFound; the handler maps repeat deletes to success so
// the operation stays idempotent at the API surface.
func (s *ThreadServiceImpl) DeleteThread(ctx context.Context, threadID, userID string) (*models.Thread, error) {
	thread, err := s.threads.DeleteThread(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// ListMessages returns a thread's messages in creation order. A deleted or
// absent thread yields ErrNotFound.
func (s *ThreadServiceImpl) ListMessages(ctx context.Context, threadID, userID string) ([]models.Message, error) {
	return s.messages.ListMessages(ctx, threadID, userID)
}

// AppendSystemMessage records a card action (e.g. an applied optimization) as
// a system-role message so the coach sees it in later exchanges. The insert
// and the thread recency bump run in one transaction.
func (s *ThreadServiceImpl) AppendSystemMessage(ctx context.Context, req *services.SystemMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if err := validation.Validate(content,
		validation.Required.Error("content is required"),
		validation.Length(1, config.MaxMessageLength),
	); err != nil {
		return nil, fmt.Errorf("%w: content: %v", domain.ErrValidation, err)
	}

	// Ownership check; also rejects deleted threads.
	if _, err := s.threads.GetThread(ctx, req.ThreadID, req.UserID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:       uuid.NewString(),
		ThreadID: req.ThreadID,
		Role:     models.RoleSystem,
		Content:  content,
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.messages.CreateMessage(txCtx, msg); err != nil {
			return err
		}
		return s.threads.Touch(txCtx, req.ThreadID)
	})
	if err != nil {
		return nil, fmt.Errorf("append system message: %w", err)
	}

	s.logger.Info("system message appended", "thread_id", req.ThreadID, "message_id", msg.ID)
	return msg, nil
}
