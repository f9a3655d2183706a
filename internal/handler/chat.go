// Package handler exposes the chat API over HTTP.
// Follows Clean Architecture: handlers only communicate with services, never repositories
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"momentum/internal/domain"
	"momentum/internal/domain/services"
	"momentum/internal/httputil"
)

// ThreadHandler handles thread CRUD and message listing.
type ThreadHandler struct {
	threadService services.ThreadService
	logger        *slog.Logger
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(threadService services.ThreadService, logger *slog.Logger) *ThreadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThreadHandler{
		threadService: threadService,
		logger:        logger,
	}
}

// CreateThread creates a new empty thread
// POST /api/chat/threads
func (h *ThreadHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	thread, err := h.threadService.CreateThread(r.Context(), &services.CreateThreadRequest{UserID: userID})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"id": thread.ID})
}

// ListThreads retrieves the user's threads, most recently updated first
// GET /api/chat/threads
func (h *ThreadHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	threads, err := h.threadService.ListThreads(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, threads)
}

// DeleteThread soft-deletes a thread
// DELETE /api/chat/threads/{id}
// Idempotent: deleting an absent or already-deleted thread also returns 204.
func (h *ThreadHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathParam(w, r, "id", "Thread ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	if _, err := h.threadService.DeleteThread(r.Context(), threadID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetMessages retrieves a thread's messages in creation order
// GET /api/chat/threads/{id}/messages
// Returns 404 when the thread is absent or deleted.
func (h *ThreadHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathParam(w, r, "id", "Thread ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	messages, err := h.threadService.ListMessages(r.Context(), threadID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, messages)
}

// systemMessageBody is the request body for AppendSystemMessage.
type systemMessageBody struct {
	Content string `json:"content"`
}

// AppendSystemMessage records a card action as a system message
// POST /api/chat/threads/{id}/system-message
func (h *ThreadHandler) AppendSystemMessage(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathParam(w, r, "id", "Thread ID")
	if !ok {
		return
	}

	var body systemMessageBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := httputil.GetUserID(r)
	msg, err := h.threadService.AppendSystemMessage(r.Context(), &services.SystemMessageRequest{
		ThreadID: threadID,
		UserID:   userID,
		Content:  body.Content,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, msg)
}
