// Package client is the Go SDK for the chat API: thread CRUD, message
// fetching with retry, the streaming relay consumer and the composer that
// drives it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"momentum/internal/domain/models"
)

// ErrThreadGone marks a thread the server no longer knows: deleted or never
// existed. Callers navigate away instead of retrying.
var ErrThreadGone = errors.New("thread gone")

// maxFetchRetries bounds transient-failure retries on message fetches.
const maxFetchRetries = 3

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token, for tests and CLI use.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client talks to the chat API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger

	// retryDelay separates message-fetch retry attempts. Short in tests.
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetryDelay sets the delay between message-fetch retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient creates a chat API client.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		tokens:     tokens,
		logger:     slog.Default(),
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateThread creates an empty thread and returns its id. Both the current
// {"id": ...} shape and the legacy {"threadId": ...} shape are accepted.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/chat/threads", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", c.apiError(resp)
	}

	var body struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode create thread response: %w", err)
	}

	id := body.ID
	if id == "" {
		id = body.ThreadID
	}
	if id == "" {
		return "", fmt.Errorf("create thread response carries no id")
	}
	return id, nil
}

// ListThreads returns the user's thread summaries, most recent first.
func (c *Client) ListThreads(ctx context.Context) ([]models.ThreadSummary, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/chat/threads", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var threads []models.ThreadSummary
	if err := json.NewDecoder(resp.Body).Decode(&threads); err != nil {
		return nil, fmt.Errorf("decode threads: %w", err)
	}
	return threads, nil
}

// DeleteThread soft-deletes a thread. Deleting an already-gone thread is not
// an error.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/chat/threads/"+threadID, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}
	return nil
}

// GetMessages fetches a thread's messages in creation order.
//
// Transient failures are retried up to maxFetchRetries times. A 404 is never
// retried: the thread is gone and the caller should navigate away, so it maps
// straight to ErrThreadGone.
func (c *Client) GetMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		messages, err := c.fetchMessages(ctx, threadID)
		if err == nil {
			return messages, nil
		}
		if errors.Is(err, ErrThreadGone) || errors.Is(err, context.Canceled) {
			return nil, err
		}

		lastErr = err
		c.logger.Warn("message fetch failed", "thread_id", threadID, "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("fetch messages after %d attempts: %w", maxFetchRetries, lastErr)
}

func (c *Client) fetchMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/chat/threads/"+threadID+"/messages", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrThreadGone)
	case resp.StatusCode != http.StatusOK:
		return nil, c.apiError(resp)
	}

	var messages []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

// PostSystemMessage records a card action on the thread as a system message.
func (c *Client) PostSystemMessage(ctx context.Context, threadID, content string) (*models.Message, error) {
	body := map[string]string{"content": content}
	resp, err := c.do(ctx, http.MethodPost, "/api/chat/threads/"+threadID+"/system-message", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrThreadGone)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, c.apiError(resp)
	}

	var msg models.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode system message: %w", err)
	}
	return &msg, nil
}

// do issues an authenticated JSON request.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// An empty token is tolerated: the request goes out unauthenticated and
	// the server decides.
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

// apiError turns a non-success response into an error carrying the
// problem+json detail when present.
func (c *Client) apiError(resp *http.Response) error {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&problem); err == nil && problem.Detail != "" {
		return fmt.Errorf("api error %d: %s", resp.StatusCode, problem.Detail)
	}
	return fmt.Errorf("api error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
