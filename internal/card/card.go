// Package card implements the payload convention for rich coach cards:
// a structured JSON block embedded in an assistant message's text content
// after a fixed marker, decoded into a closed set of typed variants.
package card

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Kind discriminates card payload variants. Tags are matched
// case-insensitively on decode.
type Kind string

const (
	KindGoalSuggestion  Kind = "goal_suggestion"
	KindGoalSuggestions Kind = "goal_suggestions"
	KindHabitSuggestion Kind = "habit_suggestion"
	KindHabitReview     Kind = "habit_review"
	KindHabitCompletion Kind = "habit_completion"
	KindProgressUpdate  Kind = "progress_update"
	KindGoalCelebration Kind = "goal_celebration"
	KindGoalHabitSwap   Kind = "goal_habit_swap"
	KindOptimization    Kind = "optimization"
	KindInsight         Kind = "insight"
	KindPrioritization  Kind = "prioritization"

	// KindIgnored is the fail-closed variant: an unknown tag or a payload
	// that fails validation decodes to Ignored and renders nothing.
	KindIgnored Kind = "ignored"
)

// Payload is the closed union of card variants.
type Payload interface {
	Kind() Kind
}

// Goal is a goal object carried inside card payloads.
type Goal struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	TargetDate  string `json:"targetDate,omitempty"`
}

func (g Goal) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Title, validation.Required),
	)
}

// Habit is a habit object carried inside card payloads.
type Habit struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Frequency string `json:"frequency,omitempty"` // "daily", "weekdays", "3x-week", ...
	Streak    int    `json:"streak,omitempty"`
	Why       string `json:"why,omitempty"`
}

func (h Habit) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Title, validation.Required),
	)
}

// GoalSuggestion proposes one goal with supporting habits.
type GoalSuggestion struct {
	Goal   Goal    `json:"goal"`
	Habits []Habit `json:"habits"`
}

func (GoalSuggestion) Kind() Kind { return KindGoalSuggestion }

func (p GoalSuggestion) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Goal),
		validation.Field(&p.Habits),
	)
}

// GoalSuggestions proposes several goals at once.
type GoalSuggestions struct {
	Suggestions []GoalSuggestion `json:"suggestions"`
}

func (GoalSuggestions) Kind() Kind { return KindGoalSuggestions }

func (p GoalSuggestions) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Suggestions, validation.Required),
	)
}

// HabitSuggestion proposes a single habit, optionally tied to a goal.
type HabitSuggestion struct {
	Habit  Habit  `json:"habit"`
	GoalID string `json:"goalId,omitempty"`
}

func (HabitSuggestion) Kind() Kind { return KindHabitSuggestion }

func (p HabitSuggestion) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Habit),
	)
}

// HabitReviewItem is one habit's standing inside a review card.
type HabitReviewItem struct {
	Habit          Habit   `json:"habit"`
	CompletionRate float64 `json:"completionRate"`
	Verdict        string  `json:"verdict,omitempty"` // "keep", "adjust", "drop"
}

// HabitReview summarizes how the user's habits are going.
type HabitReview struct {
	Habits []HabitReviewItem `json:"habits"`
}

func (HabitReview) Kind() Kind { return KindHabitReview }

func (p HabitReview) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Habits, validation.Required),
	)
}

// HabitCompletion celebrates a completed habit, carrying the current streak.
type HabitCompletion struct {
	Habit   Habit  `json:"habit"`
	Message string `json:"message,omitempty"`
}

func (HabitCompletion) Kind() Kind { return KindHabitCompletion }

func (p HabitCompletion) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Habit),
	)
}

// ProgressUpdate reports progress toward a goal.
type ProgressUpdate struct {
	GoalID  string  `json:"goalId,omitempty"`
	Title   string  `json:"title"`
	Percent float64 `json:"percent"`
	Summary string  `json:"summary,omitempty"`
}

func (ProgressUpdate) Kind() Kind { return KindProgressUpdate }

func (p ProgressUpdate) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Percent, validation.Min(0.0), validation.Max(100.0)),
	)
}

// GoalCelebration marks a goal as achieved.
type GoalCelebration struct {
	Goal    Goal   `json:"goal"`
	Message string `json:"message,omitempty"`
}

func (GoalCelebration) Kind() Kind { return KindGoalCelebration }

func (p GoalCelebration) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Goal),
	)
}

// GoalHabitSwap proposes replacing one habit with another under a goal.
type GoalHabitSwap struct {
	GoalID string `json:"goalId,omitempty"`
	Remove Habit  `json:"remove"`
	Add    Habit  `json:"add"`
	Reason string `json:"reason,omitempty"`
}

func (GoalHabitSwap) Kind() Kind { return KindGoalHabitSwap }

func (p GoalHabitSwap) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Remove),
		validation.Field(&p.Add),
	)
}

// HabitChange is one concrete adjustment inside an optimization card.
type HabitChange struct {
	HabitTitle string `json:"habitTitle"`
	Field      string `json:"field"` // "frequency", "time", "title"
	From       string `json:"from,omitempty"`
	To         string `json:"to"`
}

// Optimization proposes a set of habit adjustments the user can apply.
type Optimization struct {
	ID      string        `json:"id,omitempty"`
	Title   string        `json:"title"`
	Summary string        `json:"summary,omitempty"`
	Changes []HabitChange `json:"changes"`
}

func (Optimization) Kind() Kind { return KindOptimization }

func (p Optimization) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Changes, validation.Required),
	)
}

// Insight is a free-form observation about the user's patterns.
type Insight struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

func (Insight) Kind() Kind { return KindInsight }

func (p Insight) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
	)
}

// PriorityItem is one ranked entry inside a prioritization card.
type PriorityItem struct {
	Rank   int    `json:"rank"`
	Title  string `json:"title"`
	Reason string `json:"reason,omitempty"`
}

// Prioritization ranks the user's goals or habits.
type Prioritization struct {
	Items []PriorityItem `json:"items"`
}

func (Prioritization) Kind() Kind { return KindPrioritization }

func (p Prioritization) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Items, validation.Required),
	)
}

// Ignored is the fail-closed variant for unknown tags and payloads that do
// not validate. Consumers render nothing for it; it is never an error.
type Ignored struct {
	// Tag preserves the original type string for logging.
	Tag string `json:"type"`
}

func (Ignored) Kind() Kind { return KindIgnored }
