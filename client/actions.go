package client

import (
	"sync"
)

// ActionStatus is the lifecycle of one card action.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionApplied   ActionStatus = "applied"
	ActionDismissed ActionStatus = "dismissed"
)

// ActionTracker holds per-card action state keyed by card identity, so two
// cards of the same kind in one thread never share a flag. State lives with
// the component that owns the cards, not in any global map.
type ActionTracker struct {
	mu    sync.Mutex
	state map[string]ActionStatus
}

// NewActionTracker creates an empty tracker.
func NewActionTracker() *ActionTracker {
	return &ActionTracker{state: make(map[string]ActionStatus)}
}

// Set records the status for a card key.
func (t *ActionTracker) Set(key string, status ActionStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state[key] = status
}

// Get returns the status for a card key; absent keys are pending.
func (t *ActionTracker) Get(key string) ActionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if status, ok := t.state[key]; ok {
		return status
	}
	return ActionPending
}

// Reset clears all action state, e.g. when switching threads.
func (t *ActionTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = make(map[string]ActionStatus)
}
