// Package sse frames stream records as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"momentum/internal/domain/models"
)

// Writer frames stream records onto an SSE response. Every record is one
// "data: <json>\n\n" event, flushed immediately so deltas reach the client as
// they are produced.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares an SSE response: sets the stream headers and returns a
// writer. Fails when the underlying ResponseWriter cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable proxy buffering so deltas are not batched
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteRecord writes one stream record as an SSE data event and flushes.
func (s *Writer) WriteRecord(rec models.StreamRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal stream record: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write stream record: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepAlive writes an SSE comment line and flushes.
// SSE spec: lines starting with ':' are comments, ignored by clients.
func (s *Writer) WriteKeepAlive() error {
	if _, err := fmt.Fprintf(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	s.flusher.Flush()
	return nil
}
