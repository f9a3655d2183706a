package services

import (
	"context"

	"momentum/internal/domain/models"
)

// CreateThreadRequest creates an empty thread for a user. Title stays nil
// until the title-generation side effect runs after the first exchange.
type CreateThreadRequest struct {
	UserID string
}

// SystemMessageRequest appends a system-authored message to a thread,
// recording that an interactive card action occurred.
type SystemMessageRequest struct {
	ThreadID string
	UserID   string
	Content  string
}

// ThreadService manages threads and their persisted messages.
type ThreadService interface {
	CreateThread(ctx context.Context, req *CreateThreadRequest) (*models.Thread, error)
	ListThreads(ctx context.Context, userID string) ([]models.ThreadSummary, error)
	// DeleteThread soft-deletes; message fetches afterwards yield not-found.
	DeleteThread(ctx context.Context, threadID, userID string) (*models.Thread, error)
	ListMessages(ctx context.Context, threadID, userID string) ([]models.Message, error)
	AppendSystemMessage(ctx context.Context, req *SystemMessageRequest) (*models.Message, error)
}

// RespondRequest is one user message submitted to the streaming relay.
type RespondRequest struct {
	ThreadID  string `json:"threadId"`
	Content   string `json:"content"`
	AgentType string `json:"requestedAgentType,omitempty"`

	// UserID is taken from the authenticated request, never the body.
	UserID string `json:"-"`
}

// StreamingService runs the relay: persist the user message, stream the
// assistant response as records, persist the full assistant message, then
// emit end. Validation and thread lookup errors are returned synchronously
// before any record is produced; mid-stream failures close the channel
// without an end record.
type StreamingService interface {
	Respond(ctx context.Context, req *RespondRequest) (<-chan models.StreamRecord, error)
}
