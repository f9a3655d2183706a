package models

import (
	"time"
)

// Message roles. System messages record card actions (e.g. an applied
// optimization) so the coach sees them in later exchanges.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry in a thread. Immutable once persisted; ordering is
// creation time ascending with id as tiebreaker (insertion order is the only
// ordering guarantee, there is no sequence number).
//
// Assistant content may carry an embedded card payload after the codec
// marker; the payload is presentation data re-derived by parsing on every
// read, never a separate persisted entity.
type Message struct {
	ID        string    `json:"id" db:"id"`
	ThreadID  string    `json:"threadId" db:"thread_id"`
	Role      string    `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
