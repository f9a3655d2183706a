package card

import (
	"strings"
	"testing"
)

func TestDecodeSplitsOnFirstMarker(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantText    string
		wantKind    Kind
		wantPayload bool
	}{
		{
			name:        "text with habit completion card",
			content:     "Nice work!\n---json---\n{\"type\":\"habit_completion\",\"habit\":{\"title\":\"Run\",\"streak\":3}}",
			wantText:    "Nice work!",
			wantKind:    KindHabitCompletion,
			wantPayload: true,
		},
		{
			name:        "no marker means whole content is text",
			content:     "Just a plain reply with no card.",
			wantText:    "Just a plain reply with no card.",
			wantPayload: false,
		},
		{
			name:        "empty prefix renders card only",
			content:     "\n---json---\n{\"type\":\"insight\",\"title\":\"Mornings\",\"body\":\"You complete more before noon.\"}",
			wantText:    "",
			wantKind:    KindInsight,
			wantPayload: true,
		},
		{
			name:        "malformed JSON degrades to text only",
			content:     "Here you go\n---json---\n{not json",
			wantText:    "Here you go",
			wantPayload: false,
		},
		{
			name:        "unknown type decodes to ignored variant",
			content:     "Look at this\n---json---\n{\"type\":\"unknown_widget\"}",
			wantText:    "Look at this",
			wantKind:    KindIgnored,
			wantPayload: true,
		},
		{
			name:        "only first marker splits",
			content:     "a\n---json---\n{\"type\":\"insight\",\"title\":\"t\",\"body\":\"has\\n---json---\\n inside\"}",
			wantText:    "a",
			wantKind:    KindInsight,
			wantPayload: true,
		},
		{
			name:        "validation failure fails closed to ignored",
			content:     "hm\n---json---\n{\"type\":\"habit_completion\",\"habit\":{\"streak\":3}}",
			wantText:    "hm",
			wantKind:    KindIgnored,
			wantPayload: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, payload := Decode(tt.content)
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if tt.wantPayload {
				if payload == nil {
					t.Fatalf("payload = nil, want kind %s", tt.wantKind)
				}
				if payload.Kind() != tt.wantKind {
					t.Errorf("kind = %s, want %s", payload.Kind(), tt.wantKind)
				}
			} else if payload != nil {
				t.Errorf("payload = %v, want nil", payload)
			}
		})
	}
}

func TestDecodeHabitCompletionFields(t *testing.T) {
	content := "Nice work!" + Marker + `{"type":"habit_completion","habit":{"title":"Run","streak":3}}`

	text, payload := Decode(content)
	if text != "Nice work!" {
		t.Errorf("text = %q", text)
	}
	completion, ok := payload.(HabitCompletion)
	if !ok {
		t.Fatalf("payload type = %T, want HabitCompletion", payload)
	}
	if completion.Habit.Title != "Run" {
		t.Errorf("habit title = %q, want Run", completion.Habit.Title)
	}
	if completion.Habit.Streak != 3 {
		t.Errorf("streak = %d, want 3", completion.Habit.Streak)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := []Payload{
		GoalSuggestion{
			Goal:   Goal{Title: "Read more", Description: "Finish a book a month"},
			Habits: []Habit{{Title: "Read 20 pages", Frequency: "daily"}},
		},
		HabitCompletion{Habit: Habit{Title: "Run", Streak: 3}},
		Optimization{
			Title:   "Shift workouts earlier",
			Changes: []HabitChange{{HabitTitle: "Run", Field: "time", From: "evening", To: "morning"}},
		},
		Prioritization{Items: []PriorityItem{{Rank: 1, Title: "Sleep"}}},
	}

	for _, p := range payloads {
		t.Run(string(p.Kind()), func(t *testing.T) {
			content, err := Encode("Some coaching text.", p)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			text, decoded := Decode(content)
			if text != "Some coaching text." {
				t.Errorf("text = %q", text)
			}
			if decoded == nil {
				t.Fatal("decoded payload = nil")
			}
			if decoded.Kind() != p.Kind() {
				t.Errorf("kind = %s, want %s", decoded.Kind(), p.Kind())
			}
		})
	}
}

func TestEncodeWithoutPayload(t *testing.T) {
	content, err := Encode("plain", nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if content != "plain" {
		t.Errorf("content = %q, want %q", content, "plain")
	}
	if strings.Contains(content, Marker) {
		t.Error("content must not contain marker when payload is nil")
	}
}

func TestDecodePayloadTagCaseInsensitive(t *testing.T) {
	payload, err := DecodePayload([]byte(`{"type":"Habit_Completion","habit":{"title":"Run"}}`))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if payload.Kind() != KindHabitCompletion {
		t.Errorf("kind = %s, want %s", payload.Kind(), KindHabitCompletion)
	}
}
