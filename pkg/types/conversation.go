package types //nolint:revive // package name is intentional

import "time"

// Conversation is a past conversation supplied by the persistence layer.
// The core never stores it; it only reads summary and messages.
type Conversation struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary,omitempty"`
	Messages     []Message `json:"messages,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count,omitempty"`
}
