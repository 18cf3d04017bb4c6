package session

import (
	"context"
	"sync"
	"time"

	"Song-Rec-Go/pkg/metrics"
)

// Manager keeps sessions by id for the HTTP API.
type Manager struct {
	Capturer Capturer
	Pipeline *Pipeline
	Metrics  *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty manager.
func NewManager(c Capturer, p *Pipeline, m *metrics.Metrics) *Manager {
	return &Manager{Capturer: c, Pipeline: p, Metrics: m, sessions: make(map[string]*Session)}
}

// Create registers a new idle session.
func (m *Manager) Create() *Session {
	s := New(m.Capturer, m.Pipeline)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.Metrics.SessionOpened()
	return s
}

// Get looks a session up by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete resets and removes a session. It reports whether it existed.
func (m *Manager) Delete(ctx context.Context, id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	if s.State() == Recording {
		s.Reset(ctx)
	}
	m.Metrics.SessionClosed()
	return true
}

// Prune removes sessions not updated since before cutoff, except those still
// recording or processing. It returns the number removed.
func (m *Manager) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		snap := s.Snapshot()
		if snap.State == Recording || snap.State == Processing || !snap.UpdatedAt.Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		m.Metrics.SessionClosed()
		n++
	}
	return n
}
