package card

import (
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Marker separates the human-readable prefix from the JSON payload inside an
// assistant message's content. The literal must not change: persisted
// messages and every client build depend on it byte for byte.
const Marker = "\n---json---\n"

// Decode splits a message's raw content into its human-visible text and the
// embedded payload, if any.
//
// The text is everything before the first marker occurrence, trimmed; it may
// be empty (card-only message). If the remainder fails to parse as JSON the
// payload is absent and only the prefix text survives - a silent degrade,
// never an error. An unknown type tag decodes to the Ignored variant.
func Decode(content string) (string, Payload) {
	idx := strings.Index(content, Marker)
	if idx < 0 {
		return strings.TrimSpace(content), nil
	}

	text := strings.TrimSpace(content[:idx])
	payload, err := DecodePayload([]byte(content[idx+len(Marker):]))
	if err != nil {
		return text, nil
	}
	return text, payload
}

// Encode builds message content from text and an optional payload.
// Decode(Encode(text, p)) round-trips text (modulo trimming) and p.
func Encode(text string, payload Payload) (string, error) {
	if payload == nil {
		return text, nil
	}

	raw, err := EncodePayload(payload)
	if err != nil {
		return "", err
	}
	return text + Marker + string(raw), nil
}

// DecodePayload parses a raw JSON card payload into its typed variant.
// Returns an error only for malformed JSON; a recognized tag that fails
// validation, or an unrecognized tag, decodes to Ignored (fail closed).
func DecodePayload(raw []byte) (Payload, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("card payload: %w", err)
	}

	payload := newPayload(Kind(strings.ToLower(probe.Type)))
	if payload == nil {
		return Ignored{Tag: probe.Type}, nil
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("card payload %q: %w", probe.Type, err)
	}

	value := derefPayload(payload)
	if v, ok := value.(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return Ignored{Tag: probe.Type}, nil
		}
	}
	return value, nil
}

// EncodePayload marshals a payload with its type tag injected.
func EncodePayload(payload Payload) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode card payload: %w", err)
	}

	// Re-inject the discriminant: variants don't carry their own tag field.
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode card payload: %w", err)
	}
	m["type"] = string(payload.Kind())

	return json.Marshal(m)
}

// Tagged wraps a payload so it marshals with its type discriminant, the way
// payloads travel on the wire.
type Tagged struct {
	Payload
}

// MarshalJSON emits the payload with its type tag injected.
func (t Tagged) MarshalJSON() ([]byte, error) {
	return EncodePayload(t.Payload)
}

// newPayload returns a pointer to the zero value for a kind, or nil for
// unrecognized kinds.
func newPayload(kind Kind) Payload {
	switch kind {
	case KindGoalSuggestion:
		return &GoalSuggestion{}
	case KindGoalSuggestions:
		return &GoalSuggestions{}
	case KindHabitSuggestion:
		return &HabitSuggestion{}
	case KindHabitReview:
		return &HabitReview{}
	case KindHabitCompletion:
		return &HabitCompletion{}
	case KindProgressUpdate:
		return &ProgressUpdate{}
	case KindGoalCelebration:
		return &GoalCelebration{}
	case KindGoalHabitSwap:
		return &GoalHabitSwap{}
	case KindOptimization:
		return &Optimization{}
	case KindInsight:
		return &Insight{}
	case KindPrioritization:
		return &Prioritization{}
	default:
		return nil
	}
}

// derefPayload converts the decode target pointer back to its value form so
// callers can type-switch on plain variants.
func derefPayload(p Payload) Payload {
	switch v := p.(type) {
	case *GoalSuggestion:
		return *v
	case *GoalSuggestions:
		return *v
	case *HabitSuggestion:
		return *v
	case *HabitReview:
		return *v
	case *HabitCompletion:
		return *v
	case *ProgressUpdate:
		return *v
	case *GoalCelebration:
		return *v
	case *GoalHabitSwap:
		return *v
	case *Optimization:
		return *v
	case *Insight:
		return *v
	case *Prioritization:
		return *v
	default:
		return p
	}
}
