package handler

import (
	"log/slog"
	"net/http"
	"time"

	"momentum/internal/domain/models"
	"momentum/internal/domain/services"
	"momentum/internal/handler/sse"
	"momentum/internal/httputil"
)

// RespondHandler runs the streaming relay over SSE.
type RespondHandler struct {
	streaming services.StreamingService
	sseConfig *sse.Config
	logger    *slog.Logger
}

// NewRespondHandler creates a new respond handler
func NewRespondHandler(streaming services.StreamingService, sseConfig *sse.Config, logger *slog.Logger) *RespondHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RespondHandler{
		streaming: streaming,
		sseConfig: sseConfig,
		logger:    logger,
	}
}

// Respond submits a user message and streams the assistant response
// POST /api/chat/respond
//
// Validation and thread lookup errors surface as plain JSON error responses
// before any SSE bytes are written. Once streaming starts, failures can only
// end the stream early: the client treats a missing end record as failure.
func (h *RespondHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req services.RespondRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)

	records, err := h.streaming.Respond(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		handleError(w, err)
		return
	}

	h.stream(r, writer, records, h.logger.With("thread_id", req.ThreadID))
}

// stream pumps relay records onto the SSE connection, interleaving
// keep-alive comments while the provider is quiet.
func (h *RespondHandler) stream(r *http.Request, writer *sse.Writer, records <-chan models.StreamRecord, logger *slog.Logger) {
	keepalive := time.NewTicker(h.sseConfig.KeepAliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug("client disconnected mid-stream")
			return

		case <-keepalive.C:
			if err := writer.WriteKeepAlive(); err != nil {
				logger.Warn("keepalive failed, dropping stream", "error", err)
				return
			}

		case rec, ok := <-records:
			if !ok {
				// Channel closed without an end record: mid-stream failure.
				// Nothing more to send; the client fails on the missing end.
				return
			}
			if err := writer.WriteRecord(rec); err != nil {
				logger.Warn("record write failed, dropping stream", "error", err)
				return
			}
			if rec.Type == models.StreamEventEnd {
				return
			}
		}
	}
}
