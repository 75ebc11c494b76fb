package testing

import (
	"context"
	"sync"
	"time"

	"github.com/rwagpt/agent/internal/domain"
)

// MockMessageStore is an in-memory domain.MessageStore.
// Err, when set, is returned by every call.
type MockMessageStore struct {
	mu sync.Mutex

	Inserted  []domain.Message
	Messages  []domain.Message // returned by the fetches
	Err       error
	LastLimit int
	LastRole  string
}

// Insert records the message
func (m *MockMessageStore) Insert(_ context.Context, role, content string, timestamp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Inserted = append(m.Inserted, domain.Message{Role: role, Content: content, Timestamp: timestamp})
	return nil
}

// FetchRecent returns Messages
func (m *MockMessageStore) FetchRecent(_ context.Context, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastLimit, m.LastRole = limit, ""
	return m.Messages, m.Err
}

// FetchByRole returns Messages
func (m *MockMessageStore) FetchByRole(_ context.Context, role string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastLimit, m.LastRole = limit, role
	return m.Messages, m.Err
}

// Transcript returns the inserted messages as "role: content" lines
func (m *MockMessageStore) Transcript() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Inserted))
	for i, msg := range m.Inserted {
		out[i] = msg.Role + ": " + msg.Content
	}
	return out
}
