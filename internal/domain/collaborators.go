package domain

import (
	"context"
	"time"
)

// Searcher answers free-text questions, usually with web-grounded markdown.
type Searcher interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Message is one entry of the chat transcript
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat roles
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// MessageStore persists the chat transcript.
// Fetches return newest first.
type MessageStore interface {
	Insert(ctx context.Context, role, content string, timestamp time.Time) error
	FetchRecent(ctx context.Context, limit int) ([]Message, error)
	FetchByRole(ctx context.Context, role string, limit int) ([]Message, error)
}
