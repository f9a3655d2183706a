package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"momentum/internal/card"
	"momentum/internal/coach"
	"momentum/internal/domain"
	"momentum/internal/domain/models"
	"momentum/internal/domain/services"
	"momentum/internal/service/llm"
)

// fakeThreadRepo is an in-memory ThreadRepository.
type fakeThreadRepo struct {
	mu      sync.Mutex
	threads map[string]*models.Thread
	touched int
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{threads: make(map[string]*models.Thread)}
}

func (r *fakeThreadRepo) CreateThread(_ context.Context, thread *models.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	thread.CreatedAt = now
	thread.UpdatedAt = now
	r.threads[thread.ID] = thread
	return nil
}

func (r *fakeThreadRepo) GetThread(_ context.Context, threadID, userID string) (*models.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[threadID]
	if !ok || t.UserID != userID || t.DeletedAt != nil {
		return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	copied := *t
	return &copied, nil
}

func (r *fakeThreadRepo) ListThreads(_ context.Context, userID string) ([]models.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Thread
	for _, t := range r.threads {
		if t.UserID == userID && t.DeletedAt == nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeThreadRepo) SetTitle(_ context.Context, threadID, userID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[threadID]
	if !ok || t.UserID != userID || t.DeletedAt != nil {
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	t.Title = &title
	return nil
}

func (r *fakeThreadRepo) Touch(_ context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[threadID]
	if !ok || t.DeletedAt != nil {
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	t.UpdatedAt = time.Now()
	r.touched++
	return nil
}

func (r *fakeThreadRepo) DeleteThread(_ context.Context, threadID, userID string) (*models.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[threadID]
	if !ok || t.UserID != userID || t.DeletedAt != nil {
		return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	now := time.Now()
	t.DeletedAt = &now
	copied := *t
	return &copied, nil
}

// fakeMessageRepo is an in-memory MessageRepository tied to a thread repo for
// existence checks.
type fakeMessageRepo struct {
	mu       sync.Mutex
	threads  *fakeThreadRepo
	messages []models.Message
	failRole string // inserts with this role fail
}

func newFakeMessageRepo(threads *fakeThreadRepo) *fakeMessageRepo {
	return &fakeMessageRepo{threads: threads}
}

func (r *fakeMessageRepo) CreateMessage(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRole != "" && msg.Role == r.failRole {
		return errors.New("insert failed")
	}
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListMessages(ctx context.Context, threadID, userID string) ([]models.Message, error) {
	if _, err := r.threads.GetThread(ctx, threadID, userID); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CountMessages(_ context.Context, threadID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.ThreadID == threadID {
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) byRole(role string) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// scriptedProvider replays a fixed sequence of deltas, optionally ending with
// an error instead of metadata.
type scriptedProvider struct {
	deltas    []string
	streamErr error
	title     string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) SupportsModel(string) bool { return true }

func (p *scriptedProvider) GenerateResponse(_ context.Context, _ *services.GenerateRequest) (*services.GenerateResponse, error) {
	if p.title == "" {
		return nil, errors.New("no title scripted")
	}
	return &services.GenerateResponse{Text: p.title, Model: "scripted"}, nil
}

func (p *scriptedProvider) StreamResponse(_ context.Context, _ *services.GenerateRequest) (<-chan services.StreamEvent, error) {
	ch := make(chan services.StreamEvent, len(p.deltas)+1)
	go func() {
		defer close(ch)
		for i := range p.deltas {
			ch <- services.StreamEvent{TextDelta: &p.deltas[i]}
		}
		if p.streamErr != nil {
			ch <- services.StreamEvent{Error: p.streamErr}
			return
		}
		ch <- services.StreamEvent{Metadata: &services.StreamMetadata{Model: "scripted", StopReason: "end_turn"}}
	}()
	return ch, nil
}

func newTestRelay(t *testing.T, provider services.LLMProvider) (*RelayService, *fakeThreadRepo, *fakeMessageRepo, *models.Thread) {
	t.Helper()

	threads := newFakeThreadRepo()
	messages := newFakeMessageRepo(threads)

	personas, err := coach.LoadPersonas("")
	if err != nil {
		t.Fatalf("load personas: %v", err)
	}

	registry := llm.NewProviderRegistry(provider)
	titles := NewTitleGenerator(threads, registry, "scripted-title", nil)
	relay := NewRelayService(threads, messages, registry, personas, titles, "scripted-main", nil)

	thread := &models.Thread{ID: uuid.NewString(), UserID: "user-1"}
	if err := threads.CreateThread(context.Background(), thread); err != nil {
		t.Fatalf("create thread: %v", err)
	}

	return relay, threads, messages, thread
}

func collect(t *testing.T, ch <-chan models.StreamRecord) []models.StreamRecord {
	t.Helper()
	var out []models.StreamRecord
	deadline := time.After(5 * time.Second)
	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, rec)
		case <-deadline:
			t.Fatal("stream did not close")
		}
	}
}

func TestRespondRejectsBlankContent(t *testing.T) {
	relay, _, messages, thread := newTestRelay(t, &scriptedProvider{})

	for _, content := range []string{"", "   ", "\n\t "} {
		_, err := relay.Respond(context.Background(), &services.RespondRequest{
			ThreadID: thread.ID,
			Content:  content,
			UserID:   "user-1",
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("content %q: got %v, want ErrValidation", content, err)
		}
	}

	if n, _ := messages.CountMessages(context.Background(), thread.ID); n != 0 {
		t.Errorf("blank submissions persisted %d messages", n)
	}
}

func TestRespondUnknownThread(t *testing.T) {
	relay, _, _, _ := newTestRelay(t, &scriptedProvider{deltas: []string{"hi"}})

	_, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: uuid.NewString(),
		Content:  "hello",
		UserID:   "user-1",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRespondDeletedThread(t *testing.T) {
	relay, threads, _, thread := newTestRelay(t, &scriptedProvider{deltas: []string{"hi"}})

	if _, err := threads.DeleteThread(context.Background(), thread.ID, "user-1"); err != nil {
		t.Fatalf("delete thread: %v", err)
	}

	_, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "hello",
		UserID:   "user-1",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRespondStreamsDeltasThenEnd(t *testing.T) {
	provider := &scriptedProvider{deltas: []string{"Keep ", "going, ", "one run at a time."}}
	relay, _, messages, thread := newTestRelay(t, provider)

	ch, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "How do I stay consistent?",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	records := collect(t, ch)
	if len(records) == 0 {
		t.Fatal("no records")
	}
	if got := records[len(records)-1].Type; got != models.StreamEventEnd {
		t.Fatalf("last record type = %q, want end", got)
	}

	var text strings.Builder
	for _, rec := range records[:len(records)-1] {
		if rec.Type != models.StreamEventDelta {
			t.Fatalf("unexpected record type %q", rec.Type)
		}
		text.WriteString(rec.Content)
	}
	if text.String() != "Keep going, one run at a time." {
		t.Errorf("assembled text = %q", text.String())
	}

	if got := messages.byRole(models.RoleUser); len(got) != 1 || got[0].Content != "How do I stay consistent?" {
		t.Errorf("user messages = %+v", got)
	}
	if got := messages.byRole(models.RoleAssistant); len(got) != 1 || got[0].Content != "Keep going, one run at a time." {
		t.Errorf("assistant messages = %+v", got)
	}
}

func TestRespondEmitsCardRecords(t *testing.T) {
	payload := `{"type":"habit_completion","habit":{"title":"Morning run","streak":3},"message":"Nice work!"}`
	full := "Nice work!" + card.Marker + payload

	// Split so the marker straddles delta boundaries.
	cut := len("Nice work!") + 4
	provider := &scriptedProvider{deltas: []string{full[:cut], full[cut : cut+5], full[cut+5:]}}
	relay, _, messages, thread := newTestRelay(t, provider)

	ch, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "Done with my run!",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	records := collect(t, ch)

	var text strings.Builder
	var kinds []string
	var structured models.StreamRecord
	var cta models.StreamRecord
	for _, rec := range records {
		kinds = append(kinds, rec.Type)
		switch rec.Type {
		case models.StreamEventDelta:
			text.WriteString(rec.Content)
		case models.StreamEventCTA:
			cta = rec
		case models.StreamEventStructuredData:
			structured = rec
		}
	}

	if strings.Contains(text.String(), "---json---") {
		t.Errorf("marker leaked into deltas: %q", text.String())
	}
	if text.String() != "Nice work!" {
		t.Errorf("delta text = %q", text.String())
	}

	if cta.Label != "Keep the streak" {
		t.Errorf("cta label = %q", cta.Label)
	}

	tagged, ok := structured.Data.(card.Tagged)
	if !ok {
		t.Fatalf("structured data = %T, want card.Tagged", structured.Data)
	}
	completion, ok := tagged.Payload.(card.HabitCompletion)
	if !ok {
		t.Fatalf("payload = %T, want HabitCompletion", tagged.Payload)
	}
	if completion.Habit.Title != "Morning run" || completion.Habit.Streak != 3 {
		t.Errorf("completion = %+v", completion)
	}

	// cta and structured_data come after all deltas, end is last.
	if kinds[len(kinds)-1] != models.StreamEventEnd {
		t.Fatalf("record order = %v", kinds)
	}
	sawNonDelta := false
	for _, k := range kinds {
		if k != models.StreamEventDelta {
			sawNonDelta = true
		} else if sawNonDelta {
			t.Fatalf("delta after card records: %v", kinds)
		}
	}

	// Persisted assistant content keeps the marker and payload verbatim.
	assistant := messages.byRole(models.RoleAssistant)
	if len(assistant) != 1 || assistant[0].Content != full {
		t.Errorf("assistant content = %q, want %q", assistant[0].Content, full)
	}
}

func TestRespondMalformedPayloadDegrades(t *testing.T) {
	full := "Solid week." + card.Marker + `{"type":"habit_review",`
	provider := &scriptedProvider{deltas: []string{full}}
	relay, _, messages, thread := newTestRelay(t, provider)

	ch, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "How did I do?",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	records := collect(t, ch)
	for _, rec := range records {
		if rec.Type == models.StreamEventStructuredData || rec.Type == models.StreamEventCTA {
			t.Fatalf("malformed payload produced %q record", rec.Type)
		}
	}
	if got := records[len(records)-1].Type; got != models.StreamEventEnd {
		t.Fatalf("last record type = %q, want end", got)
	}

	// Raw content, bad payload included, is still persisted.
	assistant := messages.byRole(models.RoleAssistant)
	if len(assistant) != 1 || assistant[0].Content != full {
		t.Errorf("assistant content = %q", assistant[0].Content)
	}
}

func TestRespondUnknownCardTypeIgnored(t *testing.T) {
	full := "Here you go." + card.Marker + `{"type":"mystery_widget","x":1}`
	provider := &scriptedProvider{deltas: []string{full}}
	relay, _, _, thread := newTestRelay(t, provider)

	ch, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "Show me something",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	for _, rec := range collect(t, ch) {
		if rec.Type == models.StreamEventStructuredData {
			t.Fatalf("unknown card type surfaced as structured_data: %+v", rec)
		}
	}
}

func TestRespondMidStreamErrorClosesWithoutEnd(t *testing.T) {
	provider := &scriptedProvider{
		deltas:    []string{"Let me think"},
		streamErr: errors.New("upstream reset"),
	}
	relay, _, messages, thread := newTestRelay(t, provider)

	ch, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "hello",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	records := collect(t, ch)
	for _, rec := range records {
		if rec.Type == models.StreamEventEnd {
			t.Fatal("end record emitted after mid-stream failure")
		}
	}

	// The user message is durable; the partial assistant response is not.
	if got := messages.byRole(models.RoleUser); len(got) != 1 {
		t.Errorf("user messages = %d, want 1", len(got))
	}
	if got := messages.byRole(models.RoleAssistant); len(got) != 0 {
		t.Errorf("assistant messages = %d, want 0", len(got))
	}
}

func TestRespondPersistFailureSuppressesEnd(t *testing.T) {
	provider := &scriptedProvider{deltas: []string{"All done."}}
	relay, _, messages, thread := newTestRelay(t, provider)

	// Only the assistant insert fails; the user message persists fine.
	messages.mu.Lock()
	messages.failRole = models.RoleAssistant
	messages.mu.Unlock()

	ch, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "hello",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	for _, rec := range collect(t, ch) {
		if rec.Type == models.StreamEventEnd {
			t.Fatal("end record emitted although assistant message was not persisted")
		}
	}
}

func TestRespondGeneratesTitleOnFirstExchange(t *testing.T) {
	provider := &scriptedProvider{
		deltas: []string{"Start small: two runs a week."},
		title:  "Building a running habit",
	}
	relay, threads, _, thread := newTestRelay(t, provider)

	ch, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "I want to get into running",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	collect(t, ch)

	got, err := threads.GetThread(context.Background(), thread.ID, "user-1")
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	if got.Title == nil || *got.Title != "Building a running habit" {
		t.Errorf("title = %v, want %q", got.Title, "Building a running habit")
	}
}

func TestRespondTitleFallsBackToUserContent(t *testing.T) {
	// No scripted title, so GenerateResponse fails and the fallback applies.
	provider := &scriptedProvider{deltas: []string{"Sure."}}
	relay, threads, _, thread := newTestRelay(t, provider)

	ch, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "Help me drink more water",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	collect(t, ch)

	got, err := threads.GetThread(context.Background(), thread.ID, "user-1")
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	if got.Title == nil || *got.Title != "Help me drink more water" {
		t.Errorf("title = %v", got.Title)
	}
}

func TestRespondSkipsTitleWhenAlreadySet(t *testing.T) {
	provider := &scriptedProvider{deltas: []string{"Again!"}, title: "Should not be used"}
	relay, threads, _, thread := newTestRelay(t, provider)

	existing := "Water tracking"
	if err := threads.SetTitle(context.Background(), thread.ID, "user-1", existing); err != nil {
		t.Fatalf("seed title: %v", err)
	}

	ch, err := relay.Respond(context.Background(), &services.RespondRequest{
		ThreadID: thread.ID,
		Content:  "More advice please",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	collect(t, ch)

	got, _ := threads.GetThread(context.Background(), thread.ID, "user-1")
	if got.Title == nil || *got.Title != existing {
		t.Errorf("title = %v, want %q", got.Title, existing)
	}
}
