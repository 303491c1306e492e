// Package conversation holds in-memory conversation histories. History lives
// only for the process lifetime; there is no durable storage.
package conversation

import (
	"sync"

	"github.com/haasonsaas/relay/pkg/models"
)

// Store owns the ordered message history for a single conversation.
// Appends are strictly ordered and messages are never mutated after insertion.
type Store struct {
	mu       sync.Mutex
	messages []models.ConversationMessage
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{}
}

// History returns a copy of the message sequence in insertion order.
// Mutating the returned slice never affects the stored history.
func (s *Store) History() []models.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Append adds a message to the end of the history.
func (s *Store) Append(msg models.ConversationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Clear drops all messages. Only invoked for an explicit user reset, never by
// the processing pipeline.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
