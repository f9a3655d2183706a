package models

import (
	"time"
)

// Thread represents a persisted conversation between one user and the coach.
// Threads are soft-deleted: DeletedAt is set, rows are never removed.
type Thread struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Title     *string    `json:"title" db:"title"` // nil until title generation runs
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ThreadSummary is the list-view projection of a thread.
type ThreadSummary struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary projects a thread onto its list representation.
func (t *Thread) Summary() ThreadSummary {
	return ThreadSummary{
		ID:        t.ID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
