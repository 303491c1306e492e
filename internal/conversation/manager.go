package conversation

import "sync"

// Manager hands out per-conversation stores and enforces the single-writer
// policy: at most one processing task may be in flight for a conversation.
// A second inbound message for a busy conversation is rejected by the caller
// when Acquire reports the conversation as busy.
type Manager struct {
	mu     sync.Mutex
	stores map[int64]*Store
	active map[int64]string
}

// NewManager creates an empty conversation manager.
func NewManager() *Manager {
	return &Manager{
		stores: make(map[int64]*Store),
		active: make(map[int64]string),
	}
}

// Get returns the store for the conversation, creating it on first use.
func (m *Manager) Get(conversationID int64) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.stores[conversationID]
	if !ok {
		store = NewStore()
		m.stores[conversationID] = store
	}
	return store
}

// Acquire marks the conversation as owned by taskID. It returns false when
// another task is already in flight for this conversation.
func (m *Manager) Acquire(conversationID int64, taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.active[conversationID]; busy {
		return false
	}
	m.active[conversationID] = taskID
	return true
}

// Release clears the in-flight marker if it is still held by taskID.
func (m *Manager) Release(conversationID int64, taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[conversationID] == taskID {
		delete(m.active, conversationID)
	}
}

// InFlight reports the task currently processing the conversation, if any.
func (m *Manager) InFlight(conversationID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	taskID, ok := m.active[conversationID]
	return taskID, ok
}
