package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

// Get returns a copy of the session for a chat, or nil when none exists.
func (m *MemoryStore) Get(_ context.Context, chatID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[chatID]
	if !ok {
		return nil, nil
	}
	return copySession(sess), nil
}

// Set stores a copy of the session for a chat.
func (m *MemoryStore) Set(_ context.Context, chatID int64, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess == nil {
		delete(m.sessions, chatID)
		return nil
	}
	m.sessions[chatID] = copySession(sess)
	return nil
}

// Clear removes the session for a chat.
func (m *MemoryStore) Clear(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, chatID)
	return nil
}

// Tracking lists all chats with a session in the tracking state.
func (m *MemoryStore) Tracking(_ context.Context) ([]Tracked, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Tracked
	for chatID, sess := range m.sessions {
		if sess.State == StateTracking && sess.Tracked != nil {
			out = append(out, Tracked{ChatID: chatID, Venue: *sess.Tracked})
		}
	}
	return out, nil
}

func copySession(sess *Session) *Session {
	clone := &Session{
		State:   sess.State,
		PageNum: sess.PageNum,
	}
	if len(sess.Venues) > 0 {
		clone.Venues = append(clone.Venues[:0], sess.Venues...)
	}
	if sess.Tracked != nil {
		v := *sess.Tracked
		clone.Tracked = &v
	}
	return clone
}
