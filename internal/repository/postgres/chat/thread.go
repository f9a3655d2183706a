// Package chat provides PostgreSQL implementations of the thread and
// message repositories.
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

// ThreadRepository implements repositories.ThreadRepository using PostgreSQL
type ThreadRepository struct {
	config postgres.RepositoryConfig
	logger *slog.Logger
}

// NewThreadRepository creates a new PostgreSQL thread repository
func NewThreadRepository(config postgres.RepositoryConfig) repositories.ThreadRepository {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ThreadRepository{config: config, logger: logger}
}

// CreateThread inserts a new thread and fills in the generated timestamps.
func (r *ThreadRepository) CreateThread(ctx context.Context, thread *models.Thread) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, r.config.Tables.Threads)

	executor := postgres.GetExecutor(ctx, r.config.Pool)
	err := executor.QueryRow(ctx, query, thread.ID, thread.UserID, thread.Title).
		Scan(&thread.CreatedAt, &thread.UpdatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("thread %s: %w", thread.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create thread: %w", err)
	}

	return nil
}

// GetThread fetches a thread owned by the user. Soft-deleted threads are
// treated as absent.
func (r *ThreadRepository) GetThread(ctx context.Context, threadID, userID string) (*models.Thread, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, created_at, updated_at, deleted_at
		FROM %s
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, r.config.Tables.Threads)

	executor := postgres.GetExecutor(ctx, r.config.Pool)
	var thread models.Thread
	err := executor.QueryRow(ctx, query, threadID, userID).Scan(
		&thread.ID, &thread.UserID, &thread.Title,
		&thread.CreatedAt, &thread.UpdatedAt, &thread.DeletedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}

	return &thread, nil
}

// ListThreads returns the user's live threads, most recently updated first.
func (r *ThreadRepository) ListThreads(ctx context.Context, userID string) ([]models.Thread, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, created_at, updated_at, deleted_at
		FROM %s
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
	`, r.config.Tables.Threads)

	executor := postgres.GetExecutor(ctx, r.config.Pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	threads := []models.Thread{}
	for rows.Next() {
		var thread models.Thread
		err := rows.Scan(
			&thread.ID, &thread.UserID, &thread.Title,
			&thread.CreatedAt, &thread.UpdatedAt, &thread.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, thread)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}

	return threads, nil
}

// SetTitle stores a generated title on the thread.
func (r *ThreadRepository) SetTitle(ctx context.Context, threadID, userID, title string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, r.config.Tables.Threads)

	executor := postgres.GetExecutor(ctx, r.config.Pool)
	tag, err := executor.Exec(ctx, query, threadID, userID, title)
	if err != nil {
		return fmt.Errorf("set thread title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}

	return nil
}

// Touch bumps updated_at so thread lists sort by recency.
func (r *ThreadRepository) Touch(ctx context.Context, threadID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.config.Tables.Threads)

	executor := postgres.GetExecutor(ctx, r.config.Pool)
	tag, err := executor.Exec(ctx, query, threadID)
	if err != nil {
		return fmt.Errorf("touch thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}

	return nil
}

// DeleteThread soft-deletes a thread and returns its final state.
// Deleting an already-deleted or absent thread returns ErrNotFound.
func (r *ThreadRepository) DeleteThread(ctx context.Context, threadID, userID string) (*models.Thread, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING id, user_id, title, created_at, updated_at, deleted_at
	`, r.config.Tables.Threads)

	executor := postgres.GetExecutor(ctx, r.config.Pool)
	var thread models.Thread
	err := executor.QueryRow(ctx, query, threadID, userID).Scan(
		&thread.ID, &thread.UserID, &thread.Title,
		&thread.CreatedAt, &thread.UpdatedAt, &thread.DeletedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("delete thread: %w", err)
	}

	r.logger.Info("thread soft-deleted", "thread_id", thread.ID, "user_id", userID)
	return &thread, nil
}
