package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"momentum/internal/card"
	"momentum/internal/domain/models"
)

// RespondRequest is one user message submitted to the streaming relay.
type RespondRequest struct {
	ThreadID  string `json:"threadId"`
	Content   string `json:"content"`
	AgentType string `json:"requestedAgentType,omitempty"`
}

// Respond submits a message and returns the relay's stream records. Errors
// the server reports before streaming (validation, unknown thread) surface
// here; once records flow, a failure simply closes the channel without an
// end record, which the Consumer treats as a failed exchange.
func (c *Client) Respond(ctx context.Context, req *RespondRequest) (<-chan models.StreamRecord, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/chat/respond", req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("thread %s: %w", req.ThreadID, ErrThreadGone)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.apiError(resp)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected response content type %q", ct)
	}

	records := make(chan models.StreamRecord, 16)
	go func() {
		defer close(records)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				// Blank separators and ": keepalive" comments.
				continue
			}

			rec, err := parseRecord([]byte(data))
			if err != nil {
				c.logger.Warn("bad stream record", "error", err)
				return
			}

			select {
			case <-ctx.Done():
				return
			case records <- rec:
			}

			if rec.Type == models.StreamEventEnd {
				return
			}
		}
		// Reader error or EOF without end: the channel just closes and the
		// consumer decides what the missing end record means.
	}()

	return records, nil
}

// parseRecord decodes one wire record. structured_data payloads are decoded
// into their typed card variant; an unknown type tag yields the Ignored
// variant, which the consumer drops.
func parseRecord(data []byte) (models.StreamRecord, error) {
	var wire struct {
		Type    string          `json:"type"`
		Content string          `json:"content"`
		Label   string          `json:"label"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return models.StreamRecord{}, fmt.Errorf("decode stream record: %w", err)
	}

	rec := models.StreamRecord{Type: wire.Type, Content: wire.Content, Label: wire.Label}
	if wire.Type == models.StreamEventStructuredData && len(wire.Data) > 0 {
		payload, err := card.DecodePayload(wire.Data)
		if err != nil {
			return models.StreamRecord{}, err
		}
		rec.Data = payload
	}
	return rec, nil
}
