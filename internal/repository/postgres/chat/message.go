package chat

import (
	"context"
	"fmt"
	"log/slog"

	"momentum/internal/domain"
	"momentum/internal/domain/models"
	"momentum/internal/domain/repositories"
	"momentum/internal/repository/postgres"
)

// MessageRepository implements repositories.MessageRepository using PostgreSQL
type MessageRepository struct {
	config postgres.RepositoryConfig
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(config postgres.RepositoryConfig) repositories.MessageRepository {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageRepository{config: config, logger: logger}
}

// CreateMessage appends a message to its thread. Content is stored verbatim,
// card payload marker included.
func (r *MessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, thread_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, r.config.Tables.Messages)

	executor := postgres.GetExecutor(ctx, r.config.Pool)
	err := executor.QueryRow(ctx, query, msg.ID, msg.ThreadID, msg.Role, msg.Content).
		Scan(&msg.CreatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("thread %s: %w", msg.ThreadID, domain.ErrNotFound)
		}
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("message %s: %w", msg.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

// ListMessages returns every message of a live thread in creation order.
// A thread that is absent or soft-deleted yields ErrNotFound rather than an
// empty list, so callers can tell the two apart.
func (r *MessageRepository) ListMessages(ctx context.Context, threadID, userID string) ([]models.Message, error) {
	existsQuery := fmt.Sprintf(`
		SELECT 1 FROM %s
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, r.config.Tables.Threads)

	executor := postgres.GetExecutor(ctx, r.config.Pool)
	var one int
	if err := executor.QueryRow(ctx, existsQuery, threadID, userID).Scan(&one); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("check thread: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, thread_id, role, content, created_at
		FROM %s
		WHERE thread_id = $1
		ORDER BY created_at ASC, id ASC
	`, r.config.Tables.Messages)

	rows, err := executor.Query(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.Role, &msg.Content, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// CountMessages reports how many messages a thread holds.
func (r *MessageRepository) CountMessages(ctx context.Context, threadID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE thread_id = $1
	`, r.config.Tables.Messages)

	executor := postgres.GetExecutor(ctx, r.config.Pool)
	var count int
	if err := executor.QueryRow(ctx, query, threadID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}

	return count, nil
}
