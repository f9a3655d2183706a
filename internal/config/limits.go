package config

const (
	// MaxThreadTitleLength is the maximum length for thread titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (titles should be short and descriptive).
	MaxThreadTitleLength = 255

	// MaxMessageLength caps a single chat message. Generous enough for
	// pasted journal entries, small enough to keep provider requests sane.
	MaxMessageLength = 32000
)
