package repositories

import (
	"context"

	"momentum/internal/domain/models"
)

// ThreadRepository persists chat threads.
// Deletion is always a soft delete; a deleted thread behaves as absent
// for every read path.
type ThreadRepository interface {
	CreateThread(ctx context.Context, thread *models.Thread) error
	GetThread(ctx context.Context, threadID, userID string) (*models.Thread, error)
	ListThreads(ctx context.Context, userID string) ([]models.Thread, error)
	// SetTitle updates the thread title (title-generation side effect).
	SetTitle(ctx context.Context, threadID, userID, title string) error
	// Touch bumps updated_at so thread lists sort by recency.
	Touch(ctx context.Context, threadID string) error
	DeleteThread(ctx context.Context, threadID, userID string) (*models.Thread, error)
}

// MessageRepository persists thread messages.
// Messages are append-only per thread and immutable once written.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	// ListMessages returns all messages of a thread in creation order.
	// Returns domain.ErrNotFound when the thread is absent or soft-deleted.
	ListMessages(ctx context.Context, threadID, userID string) ([]models.Message, error)
	// CountMessages reports how many messages a thread holds.
	CountMessages(ctx context.Context, threadID string) (int, error)
}
