package session

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory Store implementation for development mode and
// tests. Records are deep-copied on the way in and out so callers can mutate
// their view without racing the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

// Get returns the stored session or a fresh unverified record if absent.
func (m *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[userID]; ok {
		return cloneSession(sess), nil
	}
	return &Session{UserID: userID}, nil
}

// Set replaces the stored session for sess.UserID.
func (m *MemoryStore) Set(_ context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.UserID] = cloneSession(sess)
	return nil
}

// ActiveLoanSessions lists sessions holding an active loan.
func (m *MemoryStore) ActiveLoanSessions(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, sess := range m.sessions {
		if sess.HasActiveLoan() {
			out = append(out, cloneSession(sess))
		}
	}
	return out, nil
}

func cloneSession(sess *Session) *Session {
	// JSON round-trip keeps the copy honest as fields are added.
	data, err := json.Marshal(sess)
	if err != nil {
		cp := *sess
		return &cp
	}
	var cp Session
	if err := json.Unmarshal(data, &cp); err != nil {
		cp = *sess
	}
	return &cp
}
