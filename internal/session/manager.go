// Package session implements the in-memory session registry: goal,
// history and timestamps per session id, plus a per-session run queue
// that serializes loop invocations.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lxagent/internal/agent/types"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Session is a named conversation context. Records are handed out as
// copies; the registry owns the canonical state.
type Session struct {
	ID             string               `json:"id"`
	CreatedAt      time.Time            `json:"created_at"`
	LastActivityAt time.Time            `json:"last_activity_at"`
	Goal           string               `json:"goal,omitempty"`
	History        []types.HistoryEntry `json:"history"`
}

// Manager is the session registry. All accesses atomically read or upsert
// a whole session record.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, creating it on first reference.
// An empty id allocates a fresh one.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.New().String()
	}
	s, ok := m.sessions[id]
	if !ok {
		now := time.Now()
		s = &Session{
			ID:             id,
			CreatedAt:      now,
			LastActivityAt: now,
		}
		m.sessions[id] = s
	}
	return copySession(s)
}

// Get returns a copy of the session, or ErrSessionNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

// List returns copies of all sessions, newest activity first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, copySession(s))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out
}

// Delete removes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Update atomically replaces a session's goal and history and bumps its
// activity timestamp.
func (m *Manager) Update(id, goal string, history []types.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Goal = goal
	s.History = append(s.History[:0:0], history...)
	s.LastActivityAt = time.Now()
	return nil
}

// ClearHistory empties a session's history in place.
func (m *Manager) ClearHistory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.History = nil
	s.LastActivityAt = time.Now()
	return nil
}

// Touch bumps a session's activity timestamp.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.LastActivityAt = time.Now()
	}
}

// Len returns the number of sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func copySession(s *Session) *Session {
	out := *s
	out.History = append([]types.HistoryEntry(nil), s.History...)
	return &out
}
