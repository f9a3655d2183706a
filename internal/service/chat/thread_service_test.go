package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"momentum/internal/config"
	"momentum/internal/domain"
	"momentum/internal/domain/models"
	"momentum/internal/domain/repositories"
	"momentum/internal/domain/services"
)

// fakeTxManager runs the function directly; the fakes have no transactions.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

func newTestThreadService(t *testing.T) (services.ThreadService, *fakeThreadRepo, *fakeMessageRepo) {
	t.Helper()
	threads := newFakeThreadRepo()
	messages := newFakeMessageRepo(threads)
	svc := NewThreadService(threads, messages, fakeTxManager{}, nil)
	return svc, threads, messages
}

func TestCreateThreadStartsUntitled(t *testing.T) {
	svc, _, _ := newTestThreadService(t)

	thread, err := svc.CreateThread(context.Background(), &services.CreateThreadRequest{UserID: "user-1"})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if thread.ID == "" {
		t.Error("thread has no id")
	}
	if thread.Title != nil {
		t.Errorf("new thread has title %q", *thread.Title)
	}
}

func TestCreateThreadRequiresUser(t *testing.T) {
	svc, _, _ := newTestThreadService(t)

	_, err := svc.CreateThread(context.Background(), &services.CreateThreadRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestDeleteThreadHidesMessages(t *testing.T) {
	svc, _, _ := newTestThreadService(t)
	ctx := context.Background()

	thread, err := svc.CreateThread(ctx, &services.CreateThreadRequest{UserID: "user-1"})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}

	if _, err := svc.AppendSystemMessage(ctx, &services.SystemMessageRequest{
		ThreadID: thread.ID,
		UserID:   "user-1",
		Content:  "Applied optimization: run in the morning",
	}); err != nil {
		t.Fatalf("append system message: %v", err)
	}

	if _, err := svc.DeleteThread(ctx, thread.ID, "user-1"); err != nil {
		t.Fatalf("delete thread: %v", err)
	}

	// Reads against the deleted thread behave as if it never existed.
	if _, err := svc.ListMessages(ctx, thread.ID, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("list messages on deleted thread: got %v, want ErrNotFound", err)
	}
	if _, err := svc.DeleteThread(ctx, thread.ID, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}

	summaries, err := svc.ListThreads(ctx, "user-1")
	if err != nil {
		t.Fatalf("list threads: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("deleted thread still listed: %+v", summaries)
	}
}

func TestAppendSystemMessageValidates(t *testing.T) {
	svc, _, _ := newTestThreadService(t)
	ctx := context.Background()

	thread, err := svc.CreateThread(ctx, &services.CreateThreadRequest{UserID: "user-1"})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}

	tests := []struct {
		name    string
		req     services.SystemMessageRequest
		wantErr error
	}{
		{
			name:    "blank content",
			req:     services.SystemMessageRequest{ThreadID: thread.ID, UserID: "user-1", Content: "  \n"},
			wantErr: domain.ErrValidation,
		},
		{
			name: "oversized content",
			req: services.SystemMessageRequest{
				ThreadID: thread.ID,
				UserID:   "user-1",
				Content:  strings.Repeat("x", config.MaxMessageLength+1),
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "foreign thread",
			req:     services.SystemMessageRequest{ThreadID: thread.ID, UserID: "user-2", Content: "hi"},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AppendSystemMessage(ctx, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAppendSystemMessagePersistsRole(t *testing.T) {
	svc, _, messages := newTestThreadService(t)
	ctx := context.Background()

	thread, err := svc.CreateThread(ctx, &services.CreateThreadRequest{UserID: "user-1"})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}

	msg, err := svc.AppendSystemMessage(ctx, &services.SystemMessageRequest{
		ThreadID: thread.ID,
		UserID:   "user-1",
		Content:  "Swapped evening walk for morning run",
	})
	if err != nil {
		t.Fatalf("append system message: %v", err)
	}
	if msg.Role != models.RoleSystem {
		t.Errorf("role = %q, want system", msg.Role)
	}

	stored := messages.byRole(models.RoleSystem)
	if len(stored) != 1 || stored[0].Content != "Swapped evening walk for morning run" {
		t.Errorf("stored system messages = %+v", stored)
	}
}
